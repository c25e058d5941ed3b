package objectstore

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPublicURL(t *testing.T) {
	assert.Equal(t,
		"https://storage.googleapis.com/receipts/1700000000000_lunch.png",
		PublicURL("receipts", "1700000000000_lunch.png"),
	)
}
