package utils

import "testing"

func TestSupportAudioExt(t *testing.T) {
	tests := []struct {
		ext  string
		want bool
	}{
		{ext: ".wav", want: true},
		{ext: ".mp3", want: true},
		{ext: ".m4a", want: true},
		{ext: ".ogg", want: true},
		{ext: ".txt", want: false},
		{ext: "", want: false},
		{ext: "wav", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.ext, func(t *testing.T) {
			if got := SupportAudioExt(tt.ext); got != tt.want {
				t.Errorf("SupportAudioExt() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestMakeObjectName(t *testing.T) {
	tests := []struct {
		name     string
		org, id  string
		fileName string
		want     string
		wantErr  bool
	}{
		{name: "wav", org: "org1", id: "c1", fileName: "call.wav", want: "orgs/org1/calls/c1.wav"},
		{name: "upper ext", org: "org1", id: "c1", fileName: "call.WAV", want: "orgs/org1/calls/c1.wav"},
		{name: "bad ext", org: "org1", id: "c1", fileName: "call.txt", wantErr: true},
		{name: "no ext", org: "org1", id: "c1", fileName: "call", wantErr: true},
		{name: "slash in id", org: "org1", id: "a/b", fileName: "call.wav", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MakeObjectName(tt.org, tt.id, tt.fileName)
			if (err != nil) != tt.wantErr {
				t.Errorf("MakeObjectName() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if got != tt.want {
				t.Errorf("MakeObjectName() = %v, want %v", got, tt.want)
			}
		})
	}
}
