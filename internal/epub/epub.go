// 包 epub 负责 EPUB 3 容器装配：按既定条目顺序写 zip，
// 生成 OPF/导航/封面/章节各文件。
// 容器硬约束：mimetype 必须是首个条目且不压缩。
package epub

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"go-newsletter-exporter/internal/model"
	"go-newsletter-exporter/internal/render"
)

// Chapter 为一个章节的装配输入。BodyXHTML 已是渲染后的章节正文。
type Chapter struct {
	Title     string
	BodyXHTML string
	Meta      []render.Pair
}

// Book 为一本书的装配输入。
type Book struct {
	Title    string
	Author   string
	Language string
	Cover    *Cover
	Chapters []Chapter
}

// chapterCSS 为章节统一样式，随每个章节文件内联。
const chapterCSS = `body { font-family: serif; line-height: 1.6; margin: 1em; }
h1 { font-size: 1.5em; margin-bottom: 0.25em; }
.meta { color: #555; font-size: 0.9em; border-bottom: 1px solid #ccc; margin-bottom: 1.5em; padding-bottom: 1em; }
.meta p { margin: 0.15em 0; }
.footnotes { margin-top: 2em; border-top: 1px solid #ccc; padding-top: 1em; font-size: 0.9em; }
.footnote-ref { text-decoration: none; }
img { max-width: 100%; }`

// WriteFile 将书装配为 EPUB 写入 path。
func WriteFile(path string, book *Book) error {
	f, err := os.Create(path)
	if err != nil {
		return &model.AssemblyError{Op: "create " + path, Err: err}
	}
	defer f.Close()
	if err := Write(f, book); err != nil {
		return err
	}
	return nil
}

// Write 按固定顺序写出容器条目。
func Write(w io.Writer, book *Book) error {
	if len(book.Chapters) == 0 {
		return &model.AssemblyError{Op: "assemble", Err: fmt.Errorf("a book needs at least one chapter")}
	}
	zw := zip.NewWriter(w)

	// mimetype 必须第一个写入且不压缩，否则阅读器无法识别容器
	header := &zip.FileHeader{Name: "mimetype", Method: zip.Store}
	entry, err := zw.CreateHeader(header)
	if err != nil {
		return &model.AssemblyError{Op: "mimetype", Err: err}
	}
	if _, err := entry.Write([]byte("application/epub+zip")); err != nil {
		return &model.AssemblyError{Op: "mimetype", Err: err}
	}

	entries := []struct {
		name string
		body string
	}{
		{"META-INF/container.xml", containerXML()},
		{"OEBPS/content.opf", book.opf()},
		{"OEBPS/nav.xhtml", book.nav()},
	}
	if book.Cover != nil {
		entries = append(entries, struct{ name, body string }{"OEBPS/text/cover.xhtml", book.coverPage()})
	}
	for _, e := range entries {
		if err := writeEntry(zw, e.name, []byte(e.body)); err != nil {
			return err
		}
	}
	if book.Cover != nil {
		if err := writeEntry(zw, "OEBPS/images/cover."+book.Cover.Ext, book.Cover.Data); err != nil {
			return err
		}
	}
	for i, ch := range book.Chapters {
		name := fmt.Sprintf("OEBPS/text/chapter-%d.xhtml", i+1)
		if err := writeEntry(zw, name, []byte(chapterXHTML(ch))); err != nil {
			return err
		}
	}
	if err := zw.Close(); err != nil {
		return &model.AssemblyError{Op: "close container", Err: err}
	}
	return nil
}

func writeEntry(zw *zip.Writer, name string, body []byte) error {
	entry, err := zw.Create(name)
	if err != nil {
		return &model.AssemblyError{Op: name, Err: err}
	}
	if _, err := entry.Write(body); err != nil {
		return &model.AssemblyError{Op: name, Err: err}
	}
	return nil
}

func containerXML() string {
	return `<?xml version="1.0" encoding="UTF-8"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`
}

// opf 生成包文档：清单覆盖全部条目，阅读顺序封面页在前。
func (b *Book) opf() string {
	var m strings.Builder
	m.WriteString(`    <item id="nav" href="nav.xhtml" media-type="application/xhtml+xml" properties="nav"/>` + "\n")
	if b.Cover != nil {
		fmt.Fprintf(&m, `    <item id="cover-image" href="images/cover.%s" media-type="%s" properties="cover-image"/>`+"\n",
			b.Cover.Ext, b.Cover.MediaType)
		m.WriteString(`    <item id="cover-page" href="text/cover.xhtml" media-type="application/xhtml+xml"/>` + "\n")
	}
	var spine strings.Builder
	if b.Cover != nil {
		spine.WriteString(`    <itemref idref="cover-page"/>` + "\n")
	}
	for i := range b.Chapters {
		fmt.Fprintf(&m, `    <item id="chapter-%d" href="text/chapter-%d.xhtml" media-type="application/xhtml+xml"/>`+"\n", i+1, i+1)
		fmt.Fprintf(&spine, `    <itemref idref="chapter-%d"/>`+"\n", i+1)
	}

	lang := b.Language
	if lang == "" {
		lang = "en"
	}
	author := b.Author
	if strings.TrimSpace(author) == "" {
		author = "Unknown"
	}
	var coverMeta string
	if b.Cover != nil {
		coverMeta = `    <meta name="cover" content="cover-image"/>` + "\n"
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="3.0" unique-identifier="book-id">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:identifier id="book-id">urn:uuid:%s</dc:identifier>
    <dc:title>%s</dc:title>
    <dc:creator>%s</dc:creator>
    <dc:language>%s</dc:language>
    <dc:date>%s</dc:date>
    <meta property="dcterms:modified">%s</meta>
%s  </metadata>
  <manifest>
%s  </manifest>
  <spine>
%s  </spine>
</package>`,
		uuid.NewString(),
		render.Escape(b.Title), render.Escape(author), lang,
		time.Now().UTC().Format(time.RFC3339), time.Now().UTC().Format("2006-01-02T15:04:05Z"),
		coverMeta, m.String(), spine.String())
}

// nav 生成目录文档。有封面时封面条目列在最前。
func (b *Book) nav() string {
	var items strings.Builder
	if b.Cover != nil {
		items.WriteString(`      <li><a href="text/cover.xhtml">Cover</a></li>` + "\n")
	}
	for i, ch := range b.Chapters {
		title := strings.TrimSpace(ch.Title)
		if title == "" {
			title = fmt.Sprintf("Chapter %d", i+1)
		}
		fmt.Fprintf(&items, `      <li><a href="text/chapter-%d.xhtml">%s</a></li>`+"\n", i+1, render.Escape(title))
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head>
  <title>%s</title>
</head>
<body>
  <nav epub:type="toc" id="toc">
    <h1>Contents</h1>
    <ol>
%s    </ol>
  </nav>
</body>
</html>`, render.Escape(b.Title), items.String())
}

func (b *Book) coverPage() string {
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml">
<head>
  <title>Cover</title>
  <style>body { margin: 0; text-align: center; } img { max-width: 100%%; max-height: 100%%; }</style>
</head>
<body>
  <img src="../images/cover.%s" alt="%s"/>
</body>
</html>`, b.Cover.Ext, render.Escape(b.Title))
}

// chapterXHTML 生成章节文档：标题、选定元数据区块、正文。
func chapterXHTML(ch Chapter) string {
	title := strings.TrimSpace(ch.Title)
	if title == "" {
		title = "Untitled"
	}
	var meta strings.Builder
	if len(ch.Meta) == 0 {
		meta.WriteString("    <p>No metadata selected.</p>\n")
	} else {
		for _, pair := range ch.Meta {
			fmt.Fprintf(&meta, "    <p><strong>%s:</strong> %s</p>\n",
				render.Escape(pair.Label), render.Escape(pair.Value))
		}
	}
	return fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE html>
<html xmlns="http://www.w3.org/1999/xhtml" xmlns:epub="http://www.idpf.org/2007/ops">
<head>
  <title>%s</title>
  <style>
%s
  </style>
</head>
<body>
  <h1>%s</h1>
  <section class="meta">
%s  </section>
  <section class="body">
%s
  </section>
</body>
</html>`, render.Escape(title), chapterCSS, render.Escape(title), meta.String(), ch.BodyXHTML)
}
