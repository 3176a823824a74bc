package rules

// Mime type presets.
var (
	ImageTypes = []string{"image/*"}
	VideoTypes = []string{"video/*"}
	AudioTypes = []string{"audio/*"}
	PDFTypes   = []string{"application/pdf"}
	ExcelTypes = []string{
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	}
	WordTypes = []string{
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	}
	PPTTypes = []string{
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
	}
	DocumentTypes = []string{
		"application/pdf",
		"application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		"application/vnd.ms-powerpoint",
		"application/vnd.openxmlformats-officedocument.presentationml.presentation",
		"text/plain",
		"application/rtf",
	}
	ArchiveTypes = []string{
		"application/zip",
		"application/x-rar-compressed",
		"application/vnd.rar",
		"application/x-7z-compressed",
		"application/gzip",
		"application/x-tar",
		"application/x-bzip2",
	}
	TextTypes  = []string{"text/*"}
	JSONTypes  = []string{"application/json"}
	XMLTypes   = []string{"application/xml", "text/xml"}
	MediaTypes = []string{"image/*", "video/*", "audio/*"}
)

func (r *URLRule) Image() *URLRule    { return r.MimeTypes(ImageTypes...) }
func (r *URLRule) Video() *URLRule    { return r.MimeTypes(VideoTypes...) }
func (r *URLRule) Audio() *URLRule    { return r.MimeTypes(AudioTypes...) }
func (r *URLRule) Document() *URLRule { return r.MimeTypes(DocumentTypes...) }
func (r *URLRule) PDF() *URLRule      { return r.MimeTypes(PDFTypes...) }
func (r *URLRule) Excel() *URLRule    { return r.MimeTypes(ExcelTypes...) }
func (r *URLRule) Word() *URLRule     { return r.MimeTypes(WordTypes...) }
func (r *URLRule) PPT() *URLRule      { return r.MimeTypes(PPTTypes...) }
func (r *URLRule) Archive() *URLRule  { return r.MimeTypes(ArchiveTypes...) }
func (r *URLRule) Text() *URLRule     { return r.MimeTypes(TextTypes...) }
func (r *URLRule) JSON() *URLRule     { return r.MimeTypes(JSONTypes...) }
func (r *URLRule) XML() *URLRule      { return r.MimeTypes(XMLTypes...) }
func (r *URLRule) Media() *URLRule    { return r.MimeTypes(MediaTypes...) }
