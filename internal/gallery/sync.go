package gallery

import "studio-cli/internal/chat"

// SyncTranscript remaps every file part whose ImageID matches a gallery
// entry to the entry's current Src. It never adds or removes parts and
// is a no-op when nothing changed, so running it again without new
// gallery updates changes nothing. Returns the number of patched parts.
func SyncTranscript(t *chat.Transcript, images []Image) int {
	if t == nil || len(images) == 0 {
		return 0
	}
	srcByID := make(map[string]string, len(images))
	for _, img := range images {
		if img.ID != "" && img.Src != "" {
			srcByID[img.ID] = img.Src
		}
	}
	patched := 0
	for _, msg := range t.Messages() {
		for i := range msg.Parts {
			file := msg.Parts[i].File
			if msg.Parts[i].Kind != chat.PartFile || file == nil || file.ImageID == "" {
				continue
			}
			src, ok := srcByID[file.ImageID]
			if !ok || file.URL == src {
				continue
			}
			file.URL = src
			patched++
		}
	}
	return patched
}

// SyncReference remaps the standalone not-yet-sent attachment the same
// way. Returns whether the reference was patched.
func SyncReference(ref *chat.ReferenceImage, images []Image) bool {
	if ref == nil || ref.ID == "" {
		return false
	}
	for _, img := range images {
		if img.ID == ref.ID && img.Src != "" && img.Src != ref.Src {
			ref.Src = img.Src
			return true
		}
	}
	return false
}
