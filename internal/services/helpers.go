package services

import (
	"context"
	"encoding/json"

	"gorm.io/datatypes"
)

const messagePreviewLength = 50

func ensureContext(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}

// preview returns the first part of a message for notification payloads,
// with an ellipsis marker appended.
func preview(text string) string {
	runes := []rune(text)
	if len(runes) <= messagePreviewLength {
		return text
	}
	return string(runes[:messagePreviewLength]) + "..."
}

func encodeJSON(data map[string]any) datatypes.JSON {
	if data == nil {
		return nil
	}
	encoded, err := json.Marshal(data)
	if err != nil {
		return nil
	}
	return datatypes.JSON(encoded)
}
