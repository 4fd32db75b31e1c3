package imaging

// RenditionConfig defines how to generate a specific image rendition
type RenditionConfig struct {
	Name     string
	Width    int
	Height   int // 0 means maintain aspect ratio
	CropMode CropMode
	Quality  QualityLevel
	SkipAVIF bool // Skip AVIF for very small images
}

// CropMode defines how images should be cropped
type CropMode string

const (
	CropNone         CropMode = "none"          // No cropping, fit within dimensions
	CropCenterSquare CropMode = "center-square" // Center crop to square
	CropCenter16x9   CropMode = "center-16x9"   // Center crop to 16:9
	CropFitWidth     CropMode = "fit-width"     // Scale to width, maintain aspect
)

// QualityLevel defines compression quality presets
type QualityLevel string

const (
	QualityHigh   QualityLevel = "high"
	QualityMedium QualityLevel = "medium"
	QualityLow    QualityLevel = "low"
)

// QualitySettings returns encoder quality values for a given level
func (q QualityLevel) GetSettings() QualitySettings {
	switch q {
	case QualityHigh:
		return QualitySettings{AVIF: 24, WebP: 85, JPEG: 88}
	case QualityMedium:
		return QualitySettings{AVIF: 30, WebP: 78, JPEG: 82}
	case QualityLow:
		return QualitySettings{AVIF: 36, WebP: 70, JPEG: 75}
	default:
		return QualitySettings{AVIF: 30, WebP: 78, JPEG: 82}
	}
}

// QualitySettings holds quality values for each format
type QualitySettings struct {
	AVIF int // 0-63, lower = better quality
	WebP int // 0-100, higher = better quality
	JPEG int // 0-100, higher = better quality
}

// GetRenditionsForCategory returns the image ladder for a category. Every
// processor in this module renders "thumbnail"; "general" is the fallback
// ladder for any auxiliary preview image a future processor kind might add.
func GetRenditionsForCategory(category string) []RenditionConfig {
	switch category {
	case "thumbnail":
		return []RenditionConfig{
			{Name: "thumb_256", Width: 256, Height: 256, CropMode: CropCenterSquare, Quality: QualityHigh},
			{Name: "thumb_512", Width: 512, Height: 512, CropMode: CropCenterSquare, Quality: QualityMedium},
		}
	default: // general
		return []RenditionConfig{
			{Name: "general_320", Width: 320, Height: 0, CropMode: CropFitWidth, Quality: QualityMedium},
			{Name: "general_640", Width: 640, Height: 0, CropMode: CropFitWidth, Quality: QualityMedium},
		}
	}
}

// GetFormatsForRendition returns the output formats to generate
// based on whether the image has alpha channel
func GetFormatsForRendition(hasAlpha bool, skipAVIF bool) []string {
	if hasAlpha {
		if skipAVIF {
			return []string{"webp", "png"}
		}
		return []string{"avif", "webp", "png"}
	}
	if skipAVIF {
		return []string{"webp", "jpg"}
	}
	return []string{"avif", "webp", "jpg"}
}
