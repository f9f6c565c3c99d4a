package handlers

import (
	"embed"
	"encoding/base64"
	"html/template"

	"github.com/example/glaucoma-agent/internal/diagnosis"
	"github.com/example/glaucoma-agent/internal/usecase"
)

//go:embed templates/*.html
var templateFS embed.FS

const pageTemplate = "index.html"

func loadTemplates() (*template.Template, error) {
	return template.ParseFS(templateFS, "templates/*.html")
}

type pageView struct {
	Endpoint string
	Error    string
	Result   *resultView
}

type resultView struct {
	Label          string
	Badge          diagnosis.Badge
	Ratio          string
	Detail         string
	AnnotatedURL   string
	OriginalName   string
	OriginalSource template.URL
	RawJSON        string
}

func newResultView(a *usecase.Analysis) *resultView {
	res := a.Result
	view := &resultView{
		Label:        res.Label(),
		Badge:        diagnosis.BadgeFor(res.Label()),
		Ratio:        res.FormatRatio(),
		Detail:       res.Detail,
		OriginalName: a.Image.Filename,
		RawJSON:      res.PrettyRaw(),
	}
	if res.HasImage() {
		view.AnnotatedURL = res.AnnotatedImageURL
	}
	if len(a.Image.Data) > 0 {
		// The upload was sniffed as PNG or JPEG before it got here.
		view.OriginalSource = template.URL("data:" + a.Image.ContentType + ";base64," + base64.StdEncoding.EncodeToString(a.Image.Data))
	}
	return view
}
