// package formatter renders album snapshots to display formats (HTML widget, Markdown, plain text, CSV, JSON)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"html/template"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/desertthunder/fmx/internal/models"
	"github.com/desertthunder/fmx/internal/shared"
)

// Format names an output format.
type Format string

const (
	FormatHTML     Format = "html"
	FormatText     Format = "text"
	FormatMarkdown Format = "markdown"
	FormatCSV      Format = "csv"
	FormatJSON     Format = "json"
)

// Formats lists every supported format.
var Formats = []Format{FormatHTML, FormatText, FormatMarkdown, FormatCSV, FormatJSON}

// ParseFormat resolves a format name, accepting "md" and "txt" as aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "html", "":
		return FormatHTML, nil
	case "text", "txt":
		return FormatText, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "csv":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
	}
}

// widgetTemplate renders the recent albums widget. Albums with a page link are wrapped in an anchor that opens in a new tab.
var widgetTemplate = template.Must(template.New("widget").Parse(`
{{- if .Title}}<h2 class="widget-title">{{.Title}}</h2>
{{end -}}
{{- if .Albums}}<div class="fmx-recent-albums">
<ul>
{{- range .Albums}}
<li>
{{- if .URI}}<a href="{{.URI}}" title="{{.Title}}" target="_blank" rel="noopener"><img src="{{.Thumbnail}}" alt="{{.Title}}" /></a>
{{- else}}<img src="{{.Thumbnail}}" title="{{.Title}}" alt="{{.Title}}" />
{{- end -}}
</li>
{{- end}}
</ul>
</div>
{{end -}}
`))

// ExportToHTML renders albums as the widget markup. An empty list renders only the heading.
func ExportToHTML(albums []models.Album, heading string) ([]byte, error) {
	var buf bytes.Buffer
	data := struct {
		Title  string
		Albums []models.Album
	}{Title: heading, Albums: albums}

	if err := widgetTemplate.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("failed to render widget: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToCSV converts albums to CSV with columns: Title, URI, Thumbnail
func ExportToCSV(albums []models.Album) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Title", "URI", "Thumbnail"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, album := range albums {
		if err := writer.Write([]string{album.Title, album.URI, album.Thumbnail}); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ExportToMarkdown converts a snapshot to Markdown. covers maps album index to a local image path that replaces the remote thumbnail.
func ExportToMarkdown(snapshot *models.Snapshot, covers map[int]string) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString("# Recently Played Albums\n\n")
	if !snapshot.SyncedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("**Synced**: %s\n\n", snapshot.SyncedAt.Format(time.RFC1123)))
	}

	if snapshot.IsEmpty() {
		buf.WriteString("_No albums yet._\n")
		return buf.Bytes(), nil
	}

	for i, album := range snapshot.Albums {
		image := album.Thumbnail
		if local, ok := covers[i]; ok {
			image = local
		}

		cover := fmt.Sprintf("![%s](%s)", markdownEscape(album.Title), image)
		if album.HasLink() {
			cover = fmt.Sprintf("[%s](%s)", cover, album.URI)
		}
		buf.WriteString(fmt.Sprintf("%d. %s %s\n", i+1, cover, markdownEscape(album.Title)))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a snapshot to plain text format
func ExportToText(snapshot *models.Snapshot) ([]byte, error) {
	var buf bytes.Buffer

	buf.WriteString(fmt.Sprintf("Albums: %d\n", snapshot.Len()))
	if !snapshot.SyncedAt.IsZero() {
		buf.WriteString(fmt.Sprintf("Synced: %s\n", snapshot.SyncedAt.Format(time.RFC3339)))
	}
	buf.WriteString("\n")

	for i, album := range snapshot.Albums {
		buf.WriteString(fmt.Sprintf("%d. %s\n", i+1, album.Title))
		if album.HasLink() {
			buf.WriteString(fmt.Sprintf("   %s\n", album.URI))
		}
	}

	return buf.Bytes(), nil
}

// ExportToJSON encodes albums as the stored array of {title, uri, thumbnail}.
func ExportToJSON(albums []models.Album) ([]byte, error) {
	if albums == nil {
		albums = []models.Album{}
	}
	data, err := json.MarshalIndent(albums, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to encode albums: %w", err)
	}
	return append(data, '\n'), nil
}

// Render writes snapshot to w in the given format.
func Render(w io.Writer, snapshot *models.Snapshot, format Format, heading string) error {
	var (
		data []byte
		err  error
	)

	switch format {
	case FormatHTML:
		data, err = ExportToHTML(snapshot.Albums, heading)
	case FormatText:
		data, err = ExportToText(snapshot)
	case FormatMarkdown:
		data, err = ExportToMarkdown(snapshot, nil)
	case FormatCSV:
		data, err = ExportToCSV(snapshot.Albums)
	case FormatJSON:
		data, err = ExportToJSON(snapshot.Albums)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return err
	}

	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

var imageClient = resty.New().SetTimeout(30 * time.Second)

// DownloadImage downloads an image from the given URL and returns the raw bytes
func DownloadImage(url string) ([]byte, error) {
	if !shared.IsValidURL(url) {
		return nil, fmt.Errorf("%w: invalid image URL %q", shared.ErrInvalidArgument, url)
	}

	resp, err := imageClient.R().Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode())
	}

	return resp.Body(), nil
}

// MarkdownExportResult contains information about files created by WriteMarkdownExport
type MarkdownExportResult struct {
	Directory string
	Files     []string
	Covers    int      // thumbnails saved locally
	Failed    []string // titles whose thumbnail could not be saved
}

// ResizeCover scales an image to fit within maxSize x maxSize, keeping its aspect ratio, and returns it as JPEG.
func ResizeCover(data []byte, maxSize int) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if maxSize > 0 && (width > maxSize || height > maxSize) {
		if width >= height {
			height = max(1, height*maxSize/width)
			width = maxSize
		} else {
			width = max(1, width*maxSize/height)
			height = maxSize
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// WriteMarkdownExport writes {dir}/README.md and, when withCovers is set, downloads every thumbnail into {dir}/covers.
//
// A coverSize above zero resizes covers to JPEG. A failed download falls back to the remote thumbnail in the README.
func WriteMarkdownExport(snapshot *models.Snapshot, outputDir string, withCovers bool, coverSize int) (*MarkdownExportResult, error) {
	if outputDir == "" {
		outputDir = "recent_albums"
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	result := &MarkdownExportResult{Directory: outputDir, Files: []string{}}
	covers := map[int]string{}

	if withCovers && !snapshot.IsEmpty() {
		coverDir := filepath.Join(outputDir, "covers")
		if err := os.MkdirAll(coverDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory: %w", err)
		}

		for i, album := range snapshot.Albums {
			ext := imageExt(album.Thumbnail)
			if coverSize > 0 {
				ext = ".jpg"
			}
			name := fmt.Sprintf("%02d%s", i+1, ext)

			data, err := DownloadImage(album.Thumbnail)
			if err == nil && coverSize > 0 {
				data, err = ResizeCover(data, coverSize)
			}
			if err == nil {
				err = os.WriteFile(filepath.Join(coverDir, name), data, 0644)
			}
			if err != nil {
				result.Failed = append(result.Failed, album.Title)
				continue
			}

			covers[i] = "covers/" + name
			result.Files = append(result.Files, filepath.Join(coverDir, name))
			result.Covers++
		}
	}

	mdData, err := ExportToMarkdown(snapshot, covers)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}

	result.Files = append(result.Files, mdFile)
	return result, nil
}

// WriteExport renders snapshot in format and writes it to path.
func WriteExport(snapshot *models.Snapshot, format Format, path, heading string) error {
	var buf bytes.Buffer
	if err := Render(&buf, snapshot, format, heading); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write %s file: %w", format, err)
	}
	return nil
}

func imageExt(url string) string {
	if i := strings.IndexAny(url, "?#"); i >= 0 {
		url = url[:i]
	}
	switch ext := strings.ToLower(filepath.Ext(url)); ext {
	case ".png", ".jpg", ".jpeg", ".gif", ".webp":
		return ext
	default:
		return ".jpg"
	}
}

var markdownEscaper = strings.NewReplacer(`[`, `\[`, `]`, `\]`, `*`, `\*`, `_`, `\_`)

func markdownEscape(s string) string {
	return markdownEscaper.Replace(s)
}
