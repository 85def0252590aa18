package repo

import "context"

// ImageCaption is the caption attached to forwarded match images
const ImageCaption = "Image with matched keyword"

// NotifierRepo delivers text and images to the notification destination.
// Delivery is best-effort; callers log failures and do not retry.
type NotifierRepo interface {
	// SendText sends a Markdown message
	SendText(ctx context.Context, chatID, text string) error

	// SendImage sends an image with a caption
	SendImage(ctx context.Context, chatID string, image []byte, caption string) error
}
