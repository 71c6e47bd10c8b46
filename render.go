package pypindex

import (
	"html"
	"slices"
	"strings"
)

// RootIndexTitle is the title of the root index page.
const RootIndexTitle = "Simple index"

// Link is one anchor on an index page.
type Link struct {
	Name string
	Href string
}

// RenderRootIndex renders the root index page: one anchor per package name,
// href "<name>/". Names are PEP 503 normalized, deduplicated and sorted
// lexicographically, so the output is byte-identical for any input ordering.
func RenderRootIndex(names []string) string {
	normalized := make([]string, 0, len(names))
	for _, n := range names {
		normalized = append(normalized, NormalizeName(n))
	}
	slices.Sort(normalized)
	normalized = slices.Compact(normalized)

	links := make([]Link, 0, len(normalized))
	for _, n := range normalized {
		links = append(links, Link{Name: n, Href: n + "/"})
	}
	return renderPage(RootIndexTitle, links)
}

// RenderPackageIndex renders the index page for one package: one anchor per
// file, sorted by filename. Installers resolve versions themselves, so the
// ordering only has to be stable, not semantic.
func RenderPackageIndex(name string, links []Link) string {
	sorted := slices.Clone(links)
	slices.SortFunc(sorted, func(a, b Link) int {
		return strings.Compare(a.Name, b.Name)
	})
	return renderPage("Links for "+name, sorted)
}

// renderPage produces the canonical simple-repository document: a title, a
// heading and an anchor per entry. Pure string assembly, no I/O.
func renderPage(title string, links []Link) string {
	esc := html.EscapeString(title)

	var b strings.Builder
	b.WriteString("<!DOCTYPE html><html><head><title>")
	b.WriteString(esc)
	b.WriteString("</title></head><body><h1>")
	b.WriteString(esc)
	b.WriteString("</h1>")
	for _, l := range links {
		b.WriteString(`<a href="`)
		b.WriteString(html.EscapeString(l.Href))
		b.WriteString(`">`)
		b.WriteString(html.EscapeString(l.Name))
		b.WriteString("</a><br>")
	}
	b.WriteString("</body></html>")
	return b.String()
}
