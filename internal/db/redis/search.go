package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/empdex/internal/db"
)

// errNoMatch marks a query that cannot match any document, so no command is sent.
var errNoMatch = errors.New("query matches nothing")

// Search runs FT.SEARCH, or a JSON.GET round-trip for id lookups.
func (s *Store) Search(ctx context.Context, q *db.SearchQuery) (*db.SearchResult, error) {
	if q.Query.Kind == db.QueryIDs {
		hits, err := s.getMulti(ctx, q.Index, uniqueIDs(q.Query.IDs, q.Size))
		if err != nil {
			return nil, err
		}
		return &db.SearchResult{Total: len(hits), Hits: hits}, nil
	}

	def, _ := s.schema(q.Index)
	query, err := buildQuery(q.Index, def, q.Query)
	if errors.Is(err, errNoMatch) {
		return &db.SearchResult{Hits: []db.Hit{}}, nil
	}
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: err}
	}

	cmd := s.b().Arbitrary("FT.SEARCH").Args(
		q.Index, query,
		"RETURN", "1", "$",
		"LIMIT", "0", strconv.Itoa(q.Size),
		"DIALECT", "2",
	).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: classify(err)}
	}

	return parseSearchResult(raw, q.Index+":")
}

// classify marks query syntax errors as rejected requests.
func classify(err error) error {
	if isRedisErr(err, "syntax error") {
		return fmt.Errorf("%w: %w", db.ErrInvalidRequest, err)
	}
	return err
}

func uniqueIDs(ids []string, limit int) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if seen[id] || len(out) >= limit {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// --- Query building ---

// buildQuery translates a db.Query into RediSearch query syntax using the index schema.
func buildQuery(index string, def *db.IndexDefinition, q db.Query) (string, error) {
	if q.Kind == db.QueryMatchAll {
		return "*", nil
	}
	if q.Kind == db.QueryTerm {
		if _, err := termString(q.Value); err != nil {
			return "", err
		}
	}
	if def == nil {
		return "", fmt.Errorf("index %s is not registered", index)
	}

	switch q.Kind {
	case db.QueryMatch:
		attr, ok := resolve(def, q.Field)
		if !ok {
			return "", errNoMatch
		}
		return fieldQuery(attr, q.Text, true)
	case db.QueryTerm:
		attr, ok := resolve(def, q.Field)
		if !ok {
			return "", errNoMatch
		}
		v, _ := termString(q.Value)
		return fieldQuery(attr, v, false)
	default:
		return "", fmt.Errorf("%w: query kind %d", db.ErrInvalidRequest, q.Kind)
	}
}

// fieldQuery renders a single-field clause. Analyzed text matches any of its tokens.
func fieldQuery(attr attribute, value string, analyzed bool) (string, error) {
	switch attr.kind {
	case "TEXT":
		tokens := strings.Fields(value)
		if len(tokens) == 0 {
			return "", errNoMatch
		}
		for i, tok := range tokens {
			tokens[i] = escapeQuery(tok)
		}
		sep := " "
		if analyzed {
			sep = "|"
		}
		return fmt.Sprintf("@%s:(%s)", attr.name, strings.Join(tokens, sep)), nil

	case "NUMERIC":
		n, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			return "", fmt.Errorf("%w: %q is not a number", db.ErrInvalidRequest, value)
		}
		v := strconv.FormatFloat(n, 'f', -1, 64)
		return fmt.Sprintf("@%s:[%s %s]", attr.name, v, v), nil

	default:
		if attr.typ == db.FieldBoolean {
			b, err := strconv.ParseBool(value)
			if err != nil {
				return "", fmt.Errorf("%w: %q is not a boolean", db.ErrInvalidRequest, value)
			}
			value = strconv.FormatBool(b)
		}
		if value == "" {
			return "", errNoMatch
		}
		return buildTagFilter(attr.name, value), nil
	}
}

func termString(v any) (string, error) {
	switch x := v.(type) {
	case string:
		return x, nil
	case bool:
		return strconv.FormatBool(x), nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), nil
	default:
		return "", fmt.Errorf("%w: %T", db.ErrUnsupportedType, v)
	}
}

func buildTagFilter(key, value string) string {
	return fmt.Sprintf("@%s:{%s}", key, tagEscaper.Replace(value))
}

// --- Result parsing ---

// parseSearchResult reads [total, key1, ["$", json1], key2, ...].
func parseSearchResult(raw []rueidis.RedisMessage, prefix string) (*db.SearchResult, error) {
	if len(raw) == 0 {
		return &db.SearchResult{Hits: []db.Hit{}}, nil
	}

	total, err := raw[0].AsInt64()
	if err != nil {
		return nil, &db.Error{Op: db.OpSearch, Err: fmt.Errorf("parse total: %w", err)}
	}

	hits := make([]db.Hit, 0, (len(raw)-1)/2)
	for i := 1; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil {
			continue
		}

		fields, err := raw[i+1].ToArray()
		if err != nil {
			continue
		}

		doc, ok := parseFieldPairs(fields)["$"]
		if !ok {
			continue
		}

		hits = append(hits, db.Hit{ID: strings.TrimPrefix(key, prefix), Source: []byte(doc)})
	}

	return &db.SearchResult{Total: int(total), Hits: hits}, nil
}

func parseFieldPairs(fields []rueidis.RedisMessage) map[string]string {
	m := make(map[string]string, len(fields)/2)
	for j := 0; j+1 < len(fields); j += 2 {
		name, err := fields[j].ToString()
		if err != nil {
			continue
		}
		value, err := fields[j+1].ToString()
		if err != nil {
			continue
		}
		m[name] = value
	}
	return m
}

// --- Escaping ---

var tagEscaper = strings.NewReplacer(
	"\\", "\\\\",
	"|", "\\|",
	"[", "\\[",
	"]", "\\]",
	"/", "\\/",
	",", "\\,",
	".", "\\.",
	"<", "\\<",
	">", "\\>",
	"{", "\\{",
	"}", "\\}",
	"\"", "\\\"",
	"'", "\\'",
	":", "\\:",
	";", "\\;",
	"!", "\\!",
	"@", "\\@",
	"#", "\\#",
	"$", "\\$",
	"%", "\\%",
	"^", "\\^",
	"&", "\\&",
	"*", "\\*",
	"(", "\\(",
	")", "\\)",
	"-", "\\-",
	"+", "\\+",
	"=", "\\=",
	"~", "\\~",
	" ", "\\ ",
)

func escapeQuery(s string) string {
	return queryEscaper.Replace(s)
}

var queryEscaper = strings.NewReplacer(
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	`@`, `\@`,
	`{`, `\{`,
	`}`, `\}`,
	`(`, `\(`,
	`)`, `\)`,
	`|`, `\|`,
	`-`, `\-`,
	`~`, `\~`,
	`*`, `\*`,
	`[`, `\[`,
	`]`, `\]`,
	`!`, `\!`,
	`%`, `\%`,
	`^`, `\^`,
	`$`, `\$`,
	`<`, `\<`,
	`>`, `\>`,
	`=`, `\=`,
	`;`, `\;`,
	`+`, `\+`,
	`.`, `\.`,
	`,`, `\,`,
	`:`, `\:`,
)
