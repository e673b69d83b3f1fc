package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
)

const (
	DefaultMusicModel   = "music_v1"
	DefaultOutputFormat = "mp3_44100_128"
)

type ComposeRequest struct {
	Prompt       string
	LengthMs     int64
	ModelID      string
	OutputFormat string
}

type composeBody struct {
	Prompt        string `json:"prompt"`
	MusicLengthMs int64  `json:"music_length_ms,omitempty"`
	ModelID       string `json:"model_id,omitempty"`
}

// Composition is the result of a detailed music generation.
type Composition struct {
	Audio    []byte
	Filename string
	// JSON is the raw metadata document returned along with the audio.
	JSON json.RawMessage
}

// ComposeDetailed generates a track and returns its audio together with the
// composition plan and song metadata.
func (c *Client) ComposeDetailed(ctx context.Context, in *ComposeRequest) (*Composition, error) {
	modelID := in.ModelID
	if modelID == "" {
		modelID = DefaultMusicModel
	}
	format := in.OutputFormat
	if format == "" {
		format = DefaultOutputFormat
	}
	body, err := json.Marshal(&composeBody{
		Prompt:        in.Prompt,
		MusicLengthMs: in.LengthMs,
		ModelID:       modelID,
	})
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: couldn't marshal request body: %w", err)
	}
	resp, err := c.do(ctx, &request{
		method:      http.MethodPost,
		path:        "/v1/music/detailed?output_format=" + url.QueryEscape(format),
		contentType: "application/json",
		body:        body,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	return parseComposition(resp)
}

func parseComposition(resp *http.Response) (*Composition, error) {
	mediaType, params, err := mime.ParseMediaType(resp.Header.Get("content-type"))
	if err != nil {
		return nil, fmt.Errorf("elevenlabs: couldn't parse content type: %w", err)
	}
	if !strings.HasPrefix(mediaType, "multipart/") {
		return nil, fmt.Errorf("elevenlabs: unexpected content type %q", mediaType)
	}
	comp := &Composition{}
	reader := multipart.NewReader(resp.Body, params["boundary"])
	for {
		part, err := reader.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("elevenlabs: couldn't read multipart response: %w", err)
		}
		b, err := io.ReadAll(part)
		if err != nil {
			return nil, fmt.Errorf("elevenlabs: couldn't read part: %w", err)
		}
		partType, _, _ := mime.ParseMediaType(part.Header.Get("content-type"))
		switch {
		case partType == "application/json":
			if !json.Valid(b) {
				return nil, errors.New("elevenlabs: invalid json metadata part")
			}
			comp.JSON = json.RawMessage(b)
		default:
			comp.Audio = b
			comp.Filename = part.FileName()
		}
	}
	if comp.Audio == nil {
		return nil, errors.New("elevenlabs: response without audio")
	}
	if comp.JSON == nil {
		comp.JSON = json.RawMessage("{}")
	}
	return comp, nil
}

// Section is an entry of a composition plan.
type Section struct {
	// Name is nil when the section has no name.
	Name       *string
	DurationMs int64
}

type rawSection struct {
	SectionName      *string      `json:"sectionName"`
	SectionNameSnake *string      `json:"section_name"`
	DurationMs       *json.Number `json:"durationMs"`
	DurationMsSnake  *json.Number `json:"duration_ms"`
}

func (s *Section) UnmarshalJSON(b []byte) error {
	var raw rawSection
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	s.Name = raw.SectionName
	if s.Name == nil {
		s.Name = raw.SectionNameSnake
	}
	n := raw.DurationMs
	if n == nil {
		n = raw.DurationMsSnake
	}
	if n == nil {
		return nil
	}
	d, err := durationMs(*n)
	if err != nil {
		return err
	}
	s.DurationMs = d
	return nil
}

// durationMs accepts integral and fractional milliseconds, fractions are
// truncated.
func durationMs(n json.Number) (int64, error) {
	if v, err := n.Int64(); err == nil {
		return v, nil
	}
	f, err := n.Float64()
	if err != nil {
		return 0, fmt.Errorf("elevenlabs: invalid section duration %q: %w", n, err)
	}
	return int64(f), nil
}

type CompositionPlan struct {
	Sections []Section `json:"sections"`
}

type metadata struct {
	CompositionPlan      *CompositionPlan `json:"composition_plan"`
	CompositionPlanCamel *CompositionPlan `json:"compositionPlan"`
}

// Plan extracts the composition plan from a metadata document. It returns nil
// when the document has none.
func Plan(doc []byte) (*CompositionPlan, error) {
	var m metadata
	if err := json.Unmarshal(doc, &m); err != nil {
		return nil, fmt.Errorf("elevenlabs: couldn't unmarshal metadata: %w", err)
	}
	if m.CompositionPlan != nil {
		return m.CompositionPlan, nil
	}
	return m.CompositionPlanCamel, nil
}

// Plan returns the composition plan of the generated track, if any.
func (c *Composition) Plan() (*CompositionPlan, error) {
	return Plan(c.JSON)
}

// IndentJSON returns the metadata document indented with two spaces.
func (c *Composition) IndentJSON() ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, c.JSON, "", "  "); err != nil {
		return nil, fmt.Errorf("elevenlabs: couldn't indent metadata: %w", err)
	}
	return buf.Bytes(), nil
}
