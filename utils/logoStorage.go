package utils

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"net/http"

	"github.com/disintegration/imaging"
)

const (
	logoMaxDimension = 512
	logoMaxBytes     = 5 << 20 // 5 MiB raw upload limit
)

// ProcessAndUploadLogo validates, downscales and stores a business logo,
// returning the public URL. Oversized images are resized to fit within
// logoMaxDimension while keeping aspect ratio.
func ProcessAndUploadLogo(ctx context.Context, workspaceId string, businessId int, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ValidationError("logo file is empty")
	}
	if len(data) > logoMaxBytes {
		return "", ValidationError("logo file exceeds 5MB limit")
	}

	mimeType := http.DetectContentType(data)
	if mimeType != "image/png" && mimeType != "image/jpeg" {
		return "", ValidationError(fmt.Sprintf("unsupported logo type: %s", mimeType))
	}

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", ValidationError("logo file is not a valid image")
	}

	bounds := img.Bounds()
	if bounds.Dx() > logoMaxDimension || bounds.Dy() > logoMaxDimension {
		img = imaging.Fit(img, logoMaxDimension, logoMaxDimension, imaging.Lanczos)
	}

	encoded, contentType, err := encodeLogo(img, mimeType)
	if err != nil {
		return "", err
	}

	ext := "png"
	if contentType == "image/jpeg" {
		ext = "jpg"
	}
	objectName := fmt.Sprintf("logos/%s/%d_%s.%s", workspaceId, businessId, GenerateUniqueFilename(), ext)

	if err := UploadBytesToGCS(ctx, objectName, encoded, contentType); err != nil {
		return "", WrapAppError(ErrCodeExternalService, "failed to store logo", err)
	}

	return PublicObjectURL(objectName), nil
}

func encodeLogo(img image.Image, mimeType string) ([]byte, string, error) {
	var buf bytes.Buffer
	switch mimeType {
	case "image/png":
		if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/png", nil
	default:
		if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
			return nil, "", err
		}
		return buf.Bytes(), "image/jpeg", nil
	}
}
