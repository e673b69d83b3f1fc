package generate

import "fmt"

const promptTemplate = `Create a hip-hop rap battle track with a strong female rapper performing all vocals. The track should be aggressive, rhythmic, and energetic with a strong beat. Here's the battle content to perform:

%s

Structure this as a rap battle with:
- Strong female rapper delivering all verses with attitude
- Aggressive, confident female vocal delivery
- Strong hip-hop beat and rhythm
- Clear, powerful female vocal performance
- Tempo around 90-110 BPM suitable for rap battles
- Female voice throughout the entire track`

// BuildPrompt embeds the lyrics verbatim in the music prompt.
func BuildPrompt(lyrics string) string {
	return fmt.Sprintf(promptTemplate, lyrics)
}
