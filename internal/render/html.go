package render

import (
	"html/template"
	"os"

	"github.com/FocuswithJustin/CanonScope/core/errors"
)

// htmlPage renders a chart spec as a static dark-themed page. The bars
// are plain divs sized from the mean values, so the page needs no
// scripts or external assets.
const htmlPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <title>{{.Spec.Title}}</title>
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <style>
    body {
      background: #0b0b0b;
      color: #ffffff;
      font-family: system-ui, -apple-system, Segoe UI, Roboto, sans-serif;
      line-height: 1.6;
      padding: 24px;
      max-width: 860px;
      margin: auto;
    }
    h1 { font-size: 1.4rem; }
    h2 { font-size: 1.1rem; margin-top: 32px; }
    .meta {
      color: #9aa0a6;
      font-size: 0.9rem;
      margin-bottom: 24px;
    }
    .bucket {
      background: rgba(255,255,255,0.05);
      padding: 16px;
      border-radius: 12px;
      margin-bottom: 16px;
    }
    .bar-label {
      display: inline-block;
      width: 9em;
      font-size: 0.9rem;
      color: #9aa0a6;
    }
    .bar {
      display: inline-block;
      height: 0.8em;
      background: #4c8bf5;
      border-radius: 3px;
      vertical-align: middle;
    }
    .bar.negative { background: #f58b4c; }
    .value { font-size: 0.85rem; margin-left: 8px; color: #9aa0a6; }
    .incomplete { color: #f5c54c; }
  </style>
</head>
<body>

<h1>{{.Spec.Title}}</h1>
<div class="meta">
Generated at {{.Spec.GeneratedAt.Format "2006-01-02T15:04:05Z07:00"}}
{{if gt .Spec.Incomplete 0}} · <span class="incomplete">{{.Spec.Incomplete}} verse(s) incompletely scored</span>{{end}}
</div>

{{if .Spec.Empty}}
<div class="bucket">No verses were aggregated.</div>
{{end}}

{{range .Buckets}}
<div class="bucket">
  <h2>{{.Key}} <span class="value">({{.Count}} verses)</span></h2>
  {{range .Rows}}
  <div>
    <span class="bar-label">{{.Category}}</span><span class="bar{{if lt .Mean 0.0}} negative{{end}}" style="width: {{.Width}}px"></span><span class="value">{{printf "%.4f" .Mean}}</span>
  </div>
  {{end}}
</div>
{{end}}

</body>
</html>
`

// maxBarWidth is the pixel width of a full-scale bar.
const maxBarWidth = 420

type htmlRow struct {
	Category string
	Mean     float64
	Width    int
}

type htmlBucket struct {
	Key   string
	Count int
	Rows  []htmlRow
}

type htmlData struct {
	Spec    *Spec
	Buckets []htmlBucket
}

var pageTemplate = template.Must(template.New("chart").Parse(htmlPage))

// WriteHTML validates the spec and writes a static HTML rendering to
// path.
func WriteHTML(s *Spec, path string) error {
	if err := s.Validate(); err != nil {
		return err
	}

	data := htmlData{Spec: s}

	// Scale bars against the largest absolute mean so the widest bar
	// always fills the row.
	scale := 0.0
	for _, row := range s.Data {
		if m := abs(row.Mean); m > scale {
			scale = m
		}
	}

	var current *htmlBucket
	for _, row := range s.Data {
		if current == nil || current.Key != row.Key {
			data.Buckets = append(data.Buckets, htmlBucket{Key: row.Key, Count: row.Count})
			current = &data.Buckets[len(data.Buckets)-1]
		}
		width := 0
		if scale > 0 {
			width = int(abs(row.Mean) / scale * maxBarWidth)
		}
		current.Rows = append(current.Rows, htmlRow{
			Category: row.Category,
			Mean:     row.Mean,
			Width:    width,
		})
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.NewPresentation(path, err.Error())
	}
	if err := pageTemplate.Execute(f, data); err != nil {
		f.Close()
		return errors.NewPresentation(path, err.Error())
	}
	if err := f.Close(); err != nil {
		return errors.NewPresentation(path, err.Error())
	}
	return nil
}

func abs(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
