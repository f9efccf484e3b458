package sfml

// validate runs the cross-reference checks once the whole text is read.
func validate(doc *Document, opts Options) error {
	if _, ok := doc.Casting[Narrator]; !ok {
		return validationf(0, "casting must map %s to a voice", Narrator)
	}
	if opts.Voices != nil {
		for _, name := range doc.Speakers() {
			voice := doc.Casting[name]
			if !opts.Voices.HasVoice(voice) {
				return validationf(0, "voice %q for speaker %q does not resolve", voice, name)
			}
		}
	}
	segments := 0
	for _, scene := range doc.Scenes {
		for _, ev := range scene.Events {
			seg, ok := ev.(SpeechSegment)
			if !ok {
				continue
			}
			if _, cast := doc.Casting[seg.Speaker]; !cast {
				return validationf(seg.Line, "speaker %q is not in the cast", seg.Speaker)
			}
			segments++
		}
	}
	if segments == 0 {
		return &EmptyDocumentError{}
	}
	return nil
}
