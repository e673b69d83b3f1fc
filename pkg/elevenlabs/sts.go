package elevenlabs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"path/filepath"
)

const DefaultSTSModel = "eleven_multilingual_sts_v2"

type ConvertRequest struct {
	VoiceID      string
	ModelID      string
	OutputFormat string
	// Audio is the source audio to convert.
	Audio io.Reader
	// Filename is sent as the name of the uploaded audio.
	Filename string
}

// Convert re-renders the source audio in the target voice and streams the
// result to w. Non-empty chunks are written in arrival order. It returns the
// number of bytes written.
func (c *Client) Convert(ctx context.Context, in *ConvertRequest, w io.Writer) (int64, error) {
	if in.VoiceID == "" {
		return 0, errors.New("elevenlabs: missing voice id")
	}
	modelID := in.ModelID
	if modelID == "" {
		modelID = DefaultSTSModel
	}
	format := in.OutputFormat
	if format == "" {
		format = DefaultOutputFormat
	}
	filename := in.Filename
	if filename == "" {
		filename = "audio.mp3"
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if err := mw.WriteField("model_id", modelID); err != nil {
		return 0, fmt.Errorf("elevenlabs: couldn't write model field: %w", err)
	}
	fw, err := mw.CreateFormFile("audio", filepath.Base(filename))
	if err != nil {
		return 0, fmt.Errorf("elevenlabs: couldn't create audio field: %w", err)
	}
	if _, err := io.Copy(fw, in.Audio); err != nil {
		return 0, fmt.Errorf("elevenlabs: couldn't read source audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return 0, fmt.Errorf("elevenlabs: couldn't close multipart body: %w", err)
	}

	path := fmt.Sprintf("/v1/speech-to-speech/%s?output_format=%s", url.PathEscape(in.VoiceID), url.QueryEscape(format))
	resp, err := c.do(ctx, &request{
		method:      http.MethodPost,
		path:        path,
		contentType: mw.FormDataContentType(),
		accept:      "audio/mpeg",
		body:        body.Bytes(),
	})
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	var total int64
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return total, fmt.Errorf("elevenlabs: couldn't write chunk: %w", werr)
			}
			total += int64(n)
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, fmt.Errorf("elevenlabs: couldn't read stream: %w", err)
		}
	}
	c.log("elevenlabs: converted %d bytes with voice %s", total, in.VoiceID)
	return total, nil
}
