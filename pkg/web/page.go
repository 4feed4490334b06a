package web

import (
	"fmt"
	"html/template"
	"io"
)

// previewData drives both the single-file and bundle preview pages.
type previewData struct {
	Title        string
	Files        []previewFile
	DownloadHref string
	IconHref     string
}

type previewFile struct {
	Name      string
	SizeLabel string
}

var previewTmpl = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8" />
<meta name="viewport" content="width=device-width, initial-scale=1" />
<title>{{.Title}}</title>
<style>
body{font-family:sans-serif;background:#1a1126;color:#fff;display:flex;flex-direction:column;align-items:center;padding-top:10vh}
.card{background:rgba(30,20,45,.9);border-radius:16px;padding:28px 32px;max-width:420px;width:90%}
.file{margin:6px 0;word-break:break-all}
.size{opacity:.7;font-size:.9em}
img.icon{display:block;margin:0 auto 16px;max-width:96px;border-radius:12px}
a.btn{display:block;text-align:center;margin-top:20px;padding:13px;border-radius:12px;background:#6e30f5;color:#fff;text-decoration:none;font-weight:600}
</style>
</head>
<body>
<div class="card">
{{if .IconHref}}<img class="icon" src="{{.IconHref}}" alt="" />{{end}}
{{range .Files}}<div class="file">{{.Name}} <span class="size">{{.SizeLabel}}</span></div>
{{end}}<a class="btn" href="{{.DownloadHref}}">Download</a>
</div>
</body>
</html>
`))

var notFoundTmpl = template.Must(template.New("notfound").Parse(`<!DOCTYPE html>
<html lang="en">
<head><meta charset="UTF-8" /><title>File not found</title></head>
<body style="font-family:sans-serif;text-align:center;padding-top:15vh">
<h1>File not found</h1>
<p>This file is no longer available.</p>
</body>
</html>
`))

func renderPreview(w io.Writer, data previewData) error {
	return previewTmpl.Execute(w, data)
}

func renderNotFound(w io.Writer) error {
	return notFoundTmpl.Execute(w, nil)
}

// sizeLabel formats a byte count the way the preview page shows it.
func sizeLabel(size int64) string {
	switch {
	case size >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(size)/float64(1<<20))
	case size >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(size)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", size)
	}
}
