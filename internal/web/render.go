package web

import (
	"bytes"
	"encoding/json"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/yuin/goldmark"

	"github.com/hpungsan/lexis/internal/analyzer"
	"github.com/hpungsan/lexis/internal/errors"
	"github.com/hpungsan/lexis/internal/ops"
)

// ViewData is the template data for the analysis view page.
type ViewData struct {
	Title        string
	Kind         string
	Address      string
	CreatedAt    int64
	Message      string
	Version      string
	RenderedHTML template.HTML
	Sentiment    *analyzer.Sentiment
	Words        *analyzer.WordFrequencies
	Entities     *analyzer.Entities
}

func newViewData(out *ops.FetchOutput, version string) ViewData {
	p := out.Payloads()
	data := ViewData{
		Title:        out.Title(),
		Kind:         out.Kind,
		Version:      version,
		RenderedHTML: renderMarkdown(out.Content()),
		Sentiment:    decodePayload[analyzer.Sentiment](p.Sentiment),
		Words:        decodePayload[analyzer.WordFrequencies](p.WordFrequencies),
		Entities:     decodePayload[analyzer.Entities](p.NamedEntities),
	}
	if out.Shared != nil {
		data.Address = out.Shared.Address
		data.CreatedAt = out.Shared.UpdatedAt
		if out.Shared.Message != nil {
			data.Message = *out.Shared.Message
		}
	} else {
		data.Address = out.Analysis.Address
		data.CreatedAt = out.Analysis.CreatedAt
	}
	return data
}

// decodePayload parses a payload in the built-in analyzer's shape. Payloads
// from other analyzers that don't match are skipped in the view.
func decodePayload[T any](raw json.RawMessage) *T {
	if len(raw) == 0 {
		return nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return &v
}

var viewTemplate = template.Must(template.New("view").Funcs(template.FuncMap{
	"formatTime": formatTime,
}).Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
<p>{{if eq .Kind "shared"}}Shared snapshot{{else}}Analysis{{end}} &middot; {{.Address}} &middot; {{formatTime .CreatedAt}}</p>
{{with .Message}}<blockquote>{{.}}</blockquote>{{end}}
</header>
{{with .Sentiment}}
<section>
<h2>Sentiment</h2>
<p>{{.Label}} (compound {{printf "%.3f" .Compound}}, positive {{printf "%.3f" .Positive}}, negative {{printf "%.3f" .Negative}}, neutral {{printf "%.3f" .Neutral}})</p>
</section>
{{end}}
{{with .Words}}
<section>
<h2>Word frequencies</h2>
<p>{{.TotalWords}} words, {{.UniqueWords}} unique</p>
<table>
<tr><th>Word</th><th>Count</th></tr>
{{range .TopWords}}<tr><td>{{.Word}}</td><td>{{.Count}}</td></tr>
{{end}}</table>
</section>
{{end}}
{{with .Entities}}{{if .Entities}}
<section>
<h2>Named entities</h2>
<ul>
{{range .Entities}}<li>{{.Text}} <small>{{.Type}}</small></li>
{{end}}</ul>
</section>
{{end}}{{end}}
<section>
<h2>Text</h2>
{{.RenderedHTML}}
</section>
<footer>lexis {{.Version}}</footer>
</body>
</html>
`))

// renderView writes the analysis view page.
func renderView(w http.ResponseWriter, logger *slog.Logger, data ViewData) {
	var buf bytes.Buffer
	if err := viewTemplate.Execute(&buf, data); err != nil {
		logger.Error("template execution failed", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

// renderError writes err as a JSON error object. INTERNAL errors are logged
// and their message replaced so SQL errors and paths never reach the client.
func renderError(w http.ResponseWriter, logger *slog.Logger, err error) {
	lErr, ok := errors.As(err)
	if !ok {
		lErr = errors.NewInternal(err)
	}

	message := lErr.Message
	if lErr.Code == errors.ErrInternal {
		if logger != nil {
			logger.Error("request failed", "error", err)
		}
		message = "an internal error occurred"
	}

	body := map[string]any{
		"code":    string(lErr.Code),
		"message": message,
		"status":  lErr.Status,
	}
	if lErr.Code != errors.ErrInternal && lErr.Details != nil {
		body["details"] = lErr.Details
	}
	renderJSON(w, lErr.Status, map[string]any{"error": body})
}

// renderJSON writes a JSON response.
func renderJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// renderMarkdown converts the analyzed text to HTML using goldmark. Raw HTML
// in the text is dropped by goldmark's default renderer.
func renderMarkdown(md string) template.HTML {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return template.HTML(template.HTMLEscapeString(md))
	}
	return template.HTML(buf.String())
}

// formatTime formats a Unix millisecond timestamp as "2006-01-02 15:04" UTC.
func formatTime(ms int64) string {
	return time.UnixMilli(ms).UTC().Format("2006-01-02 15:04")
}
