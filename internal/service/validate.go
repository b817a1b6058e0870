package service

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/vbonduro/platos/internal/domain"
)

const (
	minTitleLen       = 3
	minDescriptionLen = 10
)

func validateTitle(v *domain.ValidationError, title string) {
	switch {
	case title == "":
		v.Add("title", "title is required")
	case utf8.RuneCountInString(title) < minTitleLen:
		v.Add("title", fmt.Sprintf("title must be at least %d characters", minTitleLen))
	}
}

func validateDescription(v *domain.ValidationError, description string) {
	switch {
	case description == "":
		v.Add("description", "description is required")
	case utf8.RuneCountInString(description) < minDescriptionLen:
		v.Add("description", fmt.Sprintf("description must be at least %d characters", minDescriptionLen))
	}
}

// parsePrice accepts only finite, non-negative numbers.
func parsePrice(v *domain.ValidationError, raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		v.Add("price", "price is required")
		return 0
	}
	price, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(price) || math.IsInf(price, 0) {
		v.Add("price", "price must be a valid number")
		return 0
	}
	if price < 0 {
		v.Add("price", "price must not be negative")
		return 0
	}
	return price
}

func validateImageURL(v *domain.ValidationError, raw string) {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		v.Add("imageUrl", "image URL must be an absolute http(s) URL")
	}
}

func validateUpload(v *domain.ValidationError, upload *ImageUpload) {
	if ct := upload.contentType(); !allowedImageTypes[ct] {
		v.Add("image", fmt.Sprintf("unsupported image type %q: only jpeg, jpg, png and webp are allowed", ct))
	}
	if len(upload.Data) > MaxImageSize {
		v.Add("image", fmt.Sprintf("image is %.2f MB; the maximum is 5 MB", float64(len(upload.Data))/(1024*1024)))
	}
}

func validateImageSource(v *domain.ValidationError, src ImageSource) {
	switch {
	case src.hasUpload():
		validateUpload(v, src.Upload)
	case src.URL != "":
		validateImageURL(v, src.URL)
	}
}
