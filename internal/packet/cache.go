package packet

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Cache stores built packets by content key.
type Cache interface {
	Get(ctx context.Context, key string) (*Packet, bool, error)
	Put(ctx context.Context, key string, p *Packet) error
}

// KeyParts are the inputs that determine a packet's content.
type KeyParts struct {
	Path         string
	Size         int64
	ModTime      time.Time
	Page         int
	BatchStart   int
	BatchEnd     int
	PromptHash   string
	RulesHash    string
	Provider     string
	Model        string
	Temperature  float64
	MaxTokens    int
	Speech       string
	SpeechModel  string
	Voice        string
	Speed        float64
	Instructions string
	Leading      int
	ContextPages int
}

// Key hashes parts into a cache key.
func Key(k KeyParts) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s\x00%d\x00%d\x00%d\x00%d-%d\x00%s\x00%s\x00", k.Path, k.Size, k.ModTime.UnixNano(),
		k.Page, k.BatchStart, k.BatchEnd, k.PromptHash, k.RulesHash)
	fmt.Fprintf(h, "%s\x00%s\x00%g\x00%d\x00", k.Provider, k.Model, k.Temperature, k.MaxTokens)
	fmt.Fprintf(h, "%s\x00%s\x00%s\x00%g\x00%q\x00", k.Speech, k.SpeechModel, k.Voice, k.Speed, k.Instructions)
	fmt.Fprintf(h, "%d\x00%d", k.Leading, k.ContextPages)
	return hex.EncodeToString(h.Sum(nil))
}
