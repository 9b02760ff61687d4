package refresh

import (
	"io"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/sells-group/cervejazero/internal/transform"
)

var (
	yearPattern      = regexp.MustCompile(`20\d\d`)
	candidatePattern = regexp.MustCompile(`(\d{1,3}(?:[.,]\d{3})+|\d{3,4})\s+(?:cervejarias|estabelecimentos)`)
)

// PageText parses an HTML document and returns its visible text, lowercased
// with whitespace runs collapsed to single spaces.
func PageText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", eris.Wrap(err, "refresh: parse html")
	}
	return normalizeText(collectText(doc)), nil
}

func collectText(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// YearFromID returns the first 20xx year embedded in a source id.
func YearFromID(id string) (int, bool) {
	m := yearPattern.FindString(id)
	if m == "" {
		return 0, false
	}
	y, err := strconv.Atoi(m)
	return y, err == nil
}

// Candidates returns every brewery count mentioned in text: a number
// followed by "cervejarias" or "estabelecimentos". Unparsable numbers are
// dropped.
func Candidates(text string) []float64 {
	var out []float64
	for _, m := range candidatePattern.FindAllStringSubmatch(text, -1) {
		v := transform.ParseLocaleFloat(m[1])
		if math.IsNaN(v) {
			continue
		}
		out = append(out, v)
	}
	return out
}

// BestCandidate picks the largest candidate; pages cite the national total
// alongside smaller regional counts.
func BestCandidate(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	best := values[0]
	for _, v := range values[1:] {
		best = max(best, v)
	}
	return best, true
}
