package main

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Generate a configuration file interactively",
	Long: `Generate a pypindex configuration file interactively.

You will be prompted for the server port, the index base path and the
storage backend settings. The result is written as YAML, ready for
"pypindex serve --config <file>".`,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().String("output", "config.yaml", "path of the generated config file")
	rootCmd.AddCommand(configureCmd)
}

func runConfigure(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")

	if _, err := os.Stat(output); err == nil {
		prompt := promptui.Prompt{
			Label:     fmt.Sprintf("File %q already exists. Overwrite it", output),
			IsConfirm: true,
		}
		if _, promptErr := prompt.Run(); promptErr != nil {
			fmt.Println("Cancelled.")
			return nil //nolint:nilerr // User cancelled, not an error
		}
	}

	portPrompt := promptui.Prompt{
		Label:    "Server port",
		Default:  "8080",
		Validate: validatePort,
	}
	portStr, err := portPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}
	port, _ := strconv.Atoi(portStr)

	basePathPrompt := promptui.Prompt{
		Label:   "Index base path",
		Default: "/simple",
	}
	basePath, err := basePathPrompt.Run()
	if err != nil {
		return handlePromptError(err)
	}

	backendSelect := promptui.Select{
		Label: "Storage backend",
		Items: []string{"filesystem", "s3"},
	}
	_, backend, err := backendSelect.Run()
	if err != nil {
		return handlePromptError(err)
	}

	cfg := map[string]any{
		"server": map[string]any{
			"port":      port,
			"base_path": basePath,
		},
	}

	switch backend {
	case "filesystem":
		storageCfg, signCfg, publicURL, promptErr := promptFilesystem()
		if promptErr != nil {
			return promptErr
		}
		cfg["storage"] = storageCfg
		cfg["sign"] = signCfg
		if publicURL != "" {
			cfg["server"].(map[string]any)["public_url"] = publicURL
		}
	case "s3":
		storageCfg, promptErr := promptS3()
		if promptErr != nil {
			return promptErr
		}
		cfg["storage"] = storageCfg
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(output, data, 0o600); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	fmt.Printf("Wrote %s\n", output)
	return nil
}

func promptFilesystem() (map[string]any, map[string]any, string, error) {
	pathPrompt := promptui.Prompt{
		Label:   "Storage directory",
		Default: "./data",
		Validate: func(input string) error {
			if input == "" {
				return errors.New("storage directory is required")
			}
			return nil
		},
	}
	path, err := pathPrompt.Run()
	if err != nil {
		return nil, nil, "", handlePromptError(err)
	}

	publicURLPrompt := promptui.Prompt{
		Label:    "Public URL (for download links)",
		Validate: validateURL,
	}
	publicURL, err := publicURLPrompt.Run()
	if err != nil {
		return nil, nil, "", handlePromptError(err)
	}

	accessKeyPrompt := promptui.Prompt{
		Label: "Signing access key",
	}
	accessKey, err := accessKeyPrompt.Run()
	if err != nil {
		return nil, nil, "", handlePromptError(err)
	}

	secretKeyPrompt := promptui.Prompt{
		Label: "Signing secret key",
		Mask:  '*',
	}
	secretKey, err := secretKeyPrompt.Run()
	if err != nil {
		return nil, nil, "", handlePromptError(err)
	}

	storageCfg := map[string]any{
		"backend": "filesystem",
		"path":    path,
	}
	signCfg := map[string]any{
		"access_key": accessKey,
		"secret_key": secretKey,
	}
	return storageCfg, signCfg, publicURL, nil
}

func promptS3() (map[string]any, error) {
	endpointPrompt := promptui.Prompt{
		Label:   "S3 endpoint (host:port)",
		Default: "s3.amazonaws.com",
		Validate: func(input string) error {
			if input == "" {
				return errors.New("endpoint is required")
			}
			return nil
		},
	}
	endpoint, err := endpointPrompt.Run()
	if err != nil {
		return nil, handlePromptError(err)
	}

	bucketPrompt := promptui.Prompt{
		Label: "Bucket",
		Validate: func(input string) error {
			if input == "" {
				return errors.New("bucket is required")
			}
			return nil
		},
	}
	bucket, err := bucketPrompt.Run()
	if err != nil {
		return nil, handlePromptError(err)
	}

	regionPrompt := promptui.Prompt{
		Label:   "Region",
		Default: "us-east-1",
	}
	region, err := regionPrompt.Run()
	if err != nil {
		return nil, handlePromptError(err)
	}

	accessKeyPrompt := promptui.Prompt{
		Label: "Access key",
	}
	accessKey, err := accessKeyPrompt.Run()
	if err != nil {
		return nil, handlePromptError(err)
	}

	secretKeyPrompt := promptui.Prompt{
		Label: "Secret key",
		Mask:  '*',
	}
	secretKey, err := secretKeyPrompt.Run()
	if err != nil {
		return nil, handlePromptError(err)
	}

	return map[string]any{
		"backend": "s3",
		"s3": map[string]any{
			"endpoint":   endpoint,
			"bucket":     bucket,
			"region":     region,
			"access_key": accessKey,
			"secret_key": secretKey,
		},
	}, nil
}

func validatePort(input string) error {
	port, err := strconv.Atoi(input)
	if err != nil {
		return errors.New("port must be a number")
	}
	if port < 1 || port > 65535 {
		return errors.New("port must be between 1 and 65535")
	}
	return nil
}

func validateURL(input string) error {
	if input == "" {
		return nil
	}
	parsed, err := url.Parse(input)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return errors.New("URL must start with http:// or https://")
	}
	return nil
}

func handlePromptError(err error) error {
	if errors.Is(err, promptui.ErrInterrupt) {
		fmt.Println("Cancelled.")
		return nil
	}
	return err
}
