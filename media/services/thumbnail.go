// Copyright (c) 2025 PeakForm
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package services

import (
	"bytes"

	"github.com/disintegration/imaging"
)

const (
	thumbnailSize        = 150
	thumbnailQuality     = 80
	thumbnailContentType = "image/jpeg"
)

// makeThumbnail resizes an image to a fixed small square, center-cropped,
// re-encoded as JPEG at a fixed quality.
func makeThumbnail(data []byte) ([]byte, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	thumb := imaging.Fill(img, thumbnailSize, thumbnailSize, imaging.Center, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(thumbnailQuality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
