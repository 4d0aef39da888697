package packet

import "testing"

func TestCaptionInterval(t *testing.T) {
	tests := []struct {
		duration, captions, want int
	}{
		{duration: 10000, captions: 4, want: 2500},
		{duration: 1045, captions: 2, want: 523},
		{duration: 1000, captions: 3, want: 333},
		{duration: 500, captions: 2, want: 300},
		{duration: 0, captions: 1, want: 300},
		{duration: 900, captions: 0, want: 900},
	}
	for _, tt := range tests {
		if got := CaptionInterval(tt.duration, tt.captions); got != tt.want {
			t.Errorf("CaptionInterval(%d, %d) = %d, want %d", tt.duration, tt.captions, got, tt.want)
		}
	}
}

func TestPacketCaption(t *testing.T) {
	p := &Packet{Captions: []string{"一。", "二。"}}
	if got := p.Caption(1); got != "二。" {
		t.Errorf("Caption(1) = %q", got)
	}
	if got := p.Caption(2); got != "" {
		t.Errorf("Caption(2) = %q", got)
	}
	var nilPacket *Packet
	if got := nilPacket.Caption(0); got != "" {
		t.Errorf("nil Caption = %q", got)
	}
}

func TestKeyChangesWithInputs(t *testing.T) {
	base := KeyParts{Path: "/lib/1_1.pdf", Size: 10, Page: 1, PromptHash: "p", RulesHash: "r", Voice: "nova"}
	k := Key(base)
	if len(k) != 64 {
		t.Fatalf("key length = %d", len(k))
	}
	if Key(base) != k {
		t.Fatal("key not stable")
	}

	variants := []func(*KeyParts){
		func(p *KeyParts) { p.Page = 2 },
		func(p *KeyParts) { p.PromptHash = "q" },
		func(p *KeyParts) { p.RulesHash = "s" },
		func(p *KeyParts) { p.Voice = "onyx" },
		func(p *KeyParts) { p.Size = 11 },
		func(p *KeyParts) { p.Leading = 1 },
		func(p *KeyParts) { p.Instructions = "excited" },
		func(p *KeyParts) { p.SpeechModel = "tts-1" },
		func(p *KeyParts) { p.Temperature = 0.7 },
		func(p *KeyParts) { p.MaxTokens = 2048 },
	}
	for i, mutate := range variants {
		v := base
		mutate(&v)
		if Key(v) == k {
			t.Errorf("variant %d produced the same key", i)
		}
	}
}
