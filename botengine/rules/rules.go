package rules

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Rule answers with Reply when any keyword appears as a whole word (or
// phrase) in the inbound text.
type Rule struct {
	Name     string   `json:"name"`
	Keywords []string `json:"keywords"`
	Reply    string   `json:"reply"`
}

// Table is evaluated in order; the first matching rule wins. A rule with no
// keywords matches everything and is only useful last.
type Table struct {
	rules []compiledRule
}

type compiledRule struct {
	Rule
	keywords []string
}

var DefaultRules = []Rule{
	{
		Name:     "greeting",
		Keywords: []string{"oi", "ola", "bom dia", "boa tarde", "boa noite", "hola", "buenos dias", "buenas tardes", "hello", "hi"},
		Reply:    "Olá! Obrigado pela mensagem. Como posso ajudar?",
	},
	{
		Name:     "pricing",
		Keywords: []string{"preco", "precos", "valor", "quanto custa", "precio", "cuanto cuesta", "price", "pricing"},
		Reply:    "Posso te passar os valores! Me conta qual produto ou serviço te interessa.",
	},
	{
		Name:     "hours",
		Keywords: []string{"horario", "horarios", "aberto", "funcionamento", "abierto", "hours", "open"},
		Reply:    "Atendemos de segunda a sexta, das 9h às 18h.",
	},
	{
		Name:     "thanks",
		Keywords: []string{"obrigado", "obrigada", "valeu", "gracias", "thanks", "thank you"},
		Reply:    "Por nada! Qualquer dúvida é só chamar.",
	},
}

func NewTable(rules []Rule) *Table {
	t := &Table{}
	for _, r := range rules {
		if strings.TrimSpace(r.Reply) == "" {
			continue
		}
		c := compiledRule{Rule: r}
		for _, k := range r.Keywords {
			if k = Fold(k); k != "" {
				c.keywords = append(c.keywords, k)
			}
		}
		t.rules = append(t.rules, c)
	}
	return t
}

// LoadFile reads a JSON array of rules. An empty path returns DefaultRules.
func LoadFile(path string) (*Table, error) {
	if path == "" {
		return NewTable(DefaultRules), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	var rules []Rule
	if err := json.Unmarshal(raw, &rules); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	return NewTable(rules), nil
}

func (t *Table) Len() int { return len(t.rules) }

// Match returns the first rule whose keywords hit text.
func (t *Table) Match(text string) (Rule, bool) {
	folded := " " + Fold(text) + " "
	if strings.TrimSpace(folded) == "" {
		return Rule{}, false
	}
	for _, r := range t.rules {
		if len(r.keywords) == 0 {
			return r.Rule, true
		}
		for _, k := range r.keywords {
			if strings.Contains(folded, " "+k+" ") {
				return r.Rule, true
			}
		}
	}
	return Rule{}, false
}

// Fold lowercases, strips accents and collapses punctuation into single
// spaces so "Olá, BOM-DIA!" becomes "ola bom dia".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(t, s)
	if err != nil {
		stripped = s
	}

	var b strings.Builder
	space := true
	for _, r := range strings.ToLower(stripped) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	return strings.TrimSpace(b.String())
}
