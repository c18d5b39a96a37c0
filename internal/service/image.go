package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/forkplate/backend/config"
)

// ImageService stores recipe images submitted as base64 data URIs.
type ImageService struct {
	s3Config *config.S3Config
}

func NewImageService(s3Config *config.S3Config) *ImageService {
	return &ImageService{s3Config: s3Config}
}

// UploadRecipeImage decodes a "data:image/...;base64," payload, uploads it to
// S3 and returns the public URL. Anything that is not a data URI (already a
// URL, or empty) is returned unchanged.
func (s *ImageService) UploadRecipeImage(ctx context.Context, image string) (string, error) {
	if !strings.HasPrefix(image, "data:") {
		return image, nil
	}

	mediaType, data, err := decodeDataURI(image)
	if err != nil {
		return "", validationf("invalid image payload: %v", err)
	}

	ext := "png"
	if parts := strings.SplitN(mediaType, "/", 2); len(parts) == 2 && parts[1] != "" {
		ext = parts[1]
	}
	fileName := fmt.Sprintf("recipe-images/%s.%s", uuid.New().String(), ext)

	_, err = s.s3Config.Client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.s3Config.BucketName),
		Key:         aws.String(fileName),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(mediaType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	publicURL := fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.s3Config.BucketName, fileName)
	log.Printf("[ImageService] Uploaded recipe image to S3: %s", publicURL)
	return publicURL, nil
}

func decodeDataURI(uri string) (mediaType string, data []byte, err error) {
	rest := strings.TrimPrefix(uri, "data:")
	head, payload, found := strings.Cut(rest, ",")
	if !found {
		return "", nil, fmt.Errorf("missing data separator")
	}
	if !strings.HasSuffix(head, ";base64") {
		return "", nil, fmt.Errorf("only base64 data URIs are supported")
	}
	mediaType = strings.TrimSuffix(head, ";base64")
	if mediaType == "" {
		mediaType = "image/png"
	}
	data, err = base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("invalid base64 image data: %w", err)
	}
	return mediaType, data, nil
}
