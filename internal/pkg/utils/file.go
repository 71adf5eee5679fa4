package utils

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

// SupportAudioExt checks if the audio extension is supported
func SupportAudioExt(ext string) bool {
	return ext == ".wav" || ext == ".mp3" || ext == ".mp4" || ext == ".m4a" || ext == ".ogg" || ext == ".flac"
}

// MakeObjectName builds the stored audio object name for a call.
// The extension is taken from the uploaded file name.
func MakeObjectName(orgID, callID, fileName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	if !SupportAudioExt(ext) {
		return "", errors.Errorf("unsupported file extension '%s'", ext)
	}
	if strings.ContainsAny(orgID+callID, "/\\ ") {
		return "", errors.Errorf("wrong name '%s/%s'", orgID, callID)
	}
	return fmt.Sprintf("orgs/%s/calls/%s%s", orgID, callID, ext), nil
}
