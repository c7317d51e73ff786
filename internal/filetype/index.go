package filetype

// entry binds one kind to the MIME types and extensions that select it.
type entry struct {
	kind  Kind
	mimes []string
	exts  []string
}

// entries maps MIME types and extensions commonly used for text extraction.
// See https://mimetype.io/all-types for the registry names.
var entries = []entry{
	{
		kind:  HTMLNative,
		mimes: []string{"text/html", "application/xhtml+xml"},
		exts:  []string{"html", "htm", "xhtml"},
	},
	{
		kind:  PDFNative,
		mimes: []string{"application/pdf"},
		exts:  []string{"pdf"},
	},
	{
		kind:  PlainText,
		mimes: []string{"text/plain", "text/markdown"},
		exts:  []string{"txt", "text", "md"},
	},
	{
		kind: Pandoc,
		mimes: []string{
			"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
			"application/msword",
			"application/vnd.oasis.opendocument.text",
			"application/rtf",
			"text/rtf",
			"application/epub+zip",
			"text/latex",
			"application/x-tex",
			"text/x-tex",
		},
		exts: []string{"docx", "doc", "odt", "rtf", "epub", "tex", "latex"},
	},
	{
		kind: Whisper,
		mimes: []string{
			"audio/mpeg",
			"audio/mp3",
			"audio/x-mp3",
			"audio/wav",
			"audio/x-wav",
			"audio/mp4",
			"video/mp4",
		},
		exts: []string{"mp3", "wav", "mp4", "m4a"},
	},
}

// Built once at init and read-only afterwards.
var (
	mimeIndex map[Mime]Kind
	extIndex  map[Extension]Kind
)

func init() {
	mimeIndex, extIndex = buildIndices(entries)
}

func buildIndices(list []entry) (map[Mime]Kind, map[Extension]Kind) {
	byMime := make(map[Mime]Kind)
	byExt := make(map[Extension]Kind)
	for _, e := range list {
		for _, m := range e.mimes {
			byMime[NewMime(m)] = e.kind
		}
		for _, x := range e.exts {
			byExt[NewExtension(x)] = e.kind
		}
	}
	return byMime, byExt
}

// MatchByExtension looks ext up in the extension table. Absent or unknown
// extensions yield Unsupported.
func MatchByExtension(ext Extension) Kind {
	if ext.IsZero() {
		return Unsupported
	}
	if k, ok := extIndex[ext]; ok {
		return k
	}
	return Unsupported
}

// MatchByMIME looks m up in the MIME table. Absent or unknown types yield Unsupported.
func MatchByMIME(m Mime) Kind {
	if m.IsZero() {
		return Unsupported
	}
	if k, ok := mimeIndex[m]; ok {
		return k
	}
	return Unsupported
}
