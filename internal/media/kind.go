package media

import "media-catalog/internal/mediatypes"

// Kind selects the generation routine for a source file.
type Kind int

const (
	KindUnsupported Kind = iota
	KindImage
	KindHeif
	KindVideo
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindHeif:
		return "heif"
	case KindVideo:
		return "video"
	default:
		return "unsupported"
	}
}

// KindOf classifies path by the MIME type of its extension.
func KindOf(path string) Kind {
	switch mediatypes.GetFileType(mediatypes.Ext(path)) {
	case mediatypes.FileTypeHeif:
		return KindHeif
	case mediatypes.FileTypeVideo:
		return KindVideo
	case mediatypes.FileTypeImage:
		return KindImage
	default:
		return KindUnsupported
	}
}
