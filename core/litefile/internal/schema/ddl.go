package schema

import (
	"strings"

	"github.com/alecthomas/participle/v2/lexer"
)

// ddlLexer tokenizes CREATE TABLE / CREATE INDEX statements just enough to
// pick out column names. It does not attempt full SQL parsing.
var ddlLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Comment", Pattern: `--[^\n]*|/\*[\s\S]*?\*/`},
	{Name: "QuotedIdent", Pattern: "\"(?:[^\"]|\"\")*\"|`(?:[^`]|``)*`|\\[[^\\]]*\\]"},
	{Name: "String", Pattern: `'(?:[^']|'')*'`},
	{Name: "Number", Pattern: `[-+]?\d+(?:\.\d+)?(?:[eE][-+]?\d+)?`},
	{Name: "Ident", Pattern: `[a-zA-Z_][a-zA-Z0-9_$]*`},
	{Name: "Punct", Pattern: `[(),.;=<>*/%+\-|&~!]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// tableConstraintKeywords start a table-level constraint rather than a
// column definition.
var tableConstraintKeywords = map[string]bool{
	"PRIMARY":    true,
	"UNIQUE":     true,
	"CHECK":      true,
	"FOREIGN":    true,
	"CONSTRAINT": true,
}

// extractColumns pulls column names out of a CREATE statement. Extraction is
// best effort: statements the tokenizer cannot handle yield nil rather than
// an error, since the catalog stays usable without column names.
func extractColumns(objType, sql string) []string {
	tokens, err := tokenizeDDL(sql)
	if err != nil {
		return nil
	}

	switch objType {
	case "table":
		return extractTableColumns(tokens)
	case "index":
		return extractIndexColumns(tokens)
	}
	return nil
}

type ddlToken struct {
	value  string
	ident  bool // Ident or QuotedIdent
	quoted bool
}

func tokenizeDDL(sql string) ([]ddlToken, error) {
	lx, err := ddlLexer.LexString("", sql)
	if err != nil {
		return nil, err
	}

	symbols := ddlLexer.Symbols()
	identSym := symbols["Ident"]
	quotedSym := symbols["QuotedIdent"]
	wsSym := symbols["Whitespace"]
	commentSym := symbols["Comment"]

	var tokens []ddlToken
	for {
		tok, err := lx.Next()
		if err != nil {
			return nil, err
		}
		if tok.EOF() {
			break
		}
		switch tok.Type {
		case wsSym, commentSym:
			continue
		case quotedSym:
			tokens = append(tokens, ddlToken{value: unquoteIdent(tok.Value), ident: true, quoted: true})
		case identSym:
			tokens = append(tokens, ddlToken{value: tok.Value, ident: true})
		default:
			tokens = append(tokens, ddlToken{value: tok.Value})
		}
	}
	return tokens, nil
}

// unquoteIdent strips identifier quoting and collapses doubled quote chars.
func unquoteIdent(s string) string {
	if len(s) < 2 {
		return s
	}
	switch s[0] {
	case '"':
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	case '`':
		return strings.ReplaceAll(s[1:len(s)-1], "``", "`")
	case '[':
		return s[1 : len(s)-1]
	}
	return s
}

// extractTableColumns returns the column names of a CREATE TABLE statement.
// Each top-level comma-separated item inside the outer parens contributes
// its first identifier, unless it opens a table constraint.
func extractTableColumns(tokens []ddlToken) []string {
	body := parenBody(tokens)
	if body == nil {
		return nil
	}

	var cols []string
	for _, item := range splitTopLevel(body) {
		if len(item) == 0 {
			continue
		}
		first := item[0]
		if !first.ident {
			continue
		}
		if !first.quoted && tableConstraintKeywords[strings.ToUpper(first.value)] {
			continue
		}
		cols = append(cols, first.value)
	}
	return cols
}

// extractIndexColumns returns the indexed column names of a CREATE INDEX
// statement. Expression index items without a leading identifier are skipped.
func extractIndexColumns(tokens []ddlToken) []string {
	body := parenBody(tokens)
	if body == nil {
		return nil
	}

	var cols []string
	for _, item := range splitTopLevel(body) {
		if len(item) == 0 || !item[0].ident {
			continue
		}
		cols = append(cols, item[0].value)
	}
	return cols
}

// parenBody returns the tokens inside the first balanced top-level paren
// group, or nil when none exists.
func parenBody(tokens []ddlToken) []ddlToken {
	start := -1
	for i, t := range tokens {
		if !t.ident && t.value == "(" {
			start = i + 1
			break
		}
	}
	if start < 0 {
		return nil
	}

	depth := 1
	for i := start; i < len(tokens); i++ {
		if tokens[i].ident {
			continue
		}
		switch tokens[i].value {
		case "(":
			depth++
		case ")":
			depth--
			if depth == 0 {
				return tokens[start:i]
			}
		}
	}
	return nil
}

// splitTopLevel splits tokens on commas that are not nested in parens.
func splitTopLevel(tokens []ddlToken) [][]ddlToken {
	var items [][]ddlToken
	depth := 0
	start := 0
	for i, t := range tokens {
		if t.ident {
			continue
		}
		switch t.value {
		case "(":
			depth++
		case ")":
			depth--
		case ",":
			if depth == 0 {
				items = append(items, tokens[start:i])
				start = i + 1
			}
		}
	}
	items = append(items, tokens[start:])
	return items
}
