package response

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/GregMSThompson/chart-renderer/internal/dto"
)

const immutableCache = "public, max-age=604800, immutable"

// WriteImage writes a chart PNG. Placeholders are marked no-store so clients
// retry once the data is back.
func (h *responseHandler) WriteImage(w http.ResponseWriter, r *http.Request, img dto.ChartImage) {
	hdr := w.Header()
	hdr.Set("Content-Type", "image/png")
	hdr.Set("Content-Length", strconv.Itoa(len(img.Data)))
	hdr.Set("X-Cache", string(img.Cache))
	if img.Placeholder {
		hdr.Set("Cache-Control", "no-store")
	} else {
		hdr.Set("Cache-Control", immutableCache)
		if img.Digest != "" {
			hdr.Set("ETag", strconv.Quote(img.Digest))
		}
	}
	hdr.Set("Content-Disposition", fmt.Sprintf("inline; filename=%q", filename(img)))
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write(img.Data); err != nil {
		h.logger(r).Warn("failed to write image response", "error", err)
	}
}

func filename(img dto.ChartImage) string {
	if len(img.Digest) >= 12 {
		return "chart-" + img.Digest[:12] + ".png"
	}
	return "chart.png"
}
