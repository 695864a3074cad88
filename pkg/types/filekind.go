package types

// FileKind is the dispatcher classification of an input file
type FileKind string

const (
	FilePDF         FileKind = "pdf"
	FileJavaScript  FileKind = "javascript"
	FileGo          FileKind = "go"
	FileHTML        FileKind = "html"
	FileMarkdown    FileKind = "markdown"
	FileText        FileKind = "text"
	FileUnsupported FileKind = "unsupported"
)

// IsCode reports whether files of this kind go through the code chunker
func (k FileKind) IsCode() bool {
	return k == FileJavaScript || k == FileGo
}
