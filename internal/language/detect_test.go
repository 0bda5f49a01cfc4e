package language

import "testing"

func TestDetect(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{"english", "Hello there, how are you?", "en"},
		{"empty defaults to english", "", "en"},
		{"numbers default to english", "12345", "en"},
		{"chinese", "你好，很高兴认识你", "zh"},
		{"japanese hiragana", "こんにちは", "ja"},
		{"japanese katakana", "コンピュータ", "ja"},
		{"japanese kana wins over ideographs", "日本語を勉強しています", "ja"},
		{"korean", "안녕하세요", "ko"},
		{"korean wins over ideographs", "안녕 世界", "ko"},
		{"mixed latin majority", "OK 好", "en"},
		{"ideograph majority with latin", "你好世界 ok", "zh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Detect(tt.text); got != tt.want {
				t.Errorf("Detect(%q) = %q, want %q", tt.text, got, tt.want)
			}
		})
	}
}

func TestBase(t *testing.T) {
	tests := []struct {
		tag  string
		want string
	}{
		{"en-US", "en"},
		{"en_GB", "en"},
		{"ja", "ja"},
		{"ZH-Hans-CN", "zh"},
		{"", ""},
		{" fr-FR ", "fr"},
	}
	for _, tt := range tests {
		if got := Base(tt.tag); got != tt.want {
			t.Errorf("Base(%q) = %q, want %q", tt.tag, got, tt.want)
		}
	}
}

func TestSameBase(t *testing.T) {
	if !SameBase("en-US", "en") {
		t.Error("expected en-US and en to agree")
	}
	if SameBase("en-US", "fr-FR") {
		t.Error("expected en-US and fr-FR to disagree")
	}
	if SameBase("", "") {
		t.Error("expected empty tags to never agree")
	}
}
