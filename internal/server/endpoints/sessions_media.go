package endpoints

import (
	"bytes"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/packet"
)

// PageImageEndpoint handles GET /api/sessions/{id}/image.
type PageImageEndpoint struct{}

func (e *PageImageEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/image", e.handler
}

func (e *PageImageEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Current page image
//	@Description	Serve the rendered page of the session's current packet
//	@Tags			sessions
//	@Produce		png
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{file}		binary
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/image [get]
func (e *PageImageEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	servePacketMedia(w, r, func(p *packet.Packet) ([]byte, string, string) {
		return p.Image, p.ImageMIME, fmt.Sprintf("page_%04d.png", p.PageNumber)
	})
}

func (e *PageImageEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "image <id>",
		Short: "Download the current page image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFile == "" {
				outputFile = args[0] + ".png"
			}
			return download(cmd, getServerURL(), "/api/sessions/"+args[0]+"/image", outputFile)
		},
	}
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Output file path")
	return cmd
}

// PageAudioEndpoint handles GET /api/sessions/{id}/audio.
type PageAudioEndpoint struct{}

func (e *PageAudioEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/sessions/{id}/audio", e.handler
}

func (e *PageAudioEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Current narration
//	@Description	Serve the narration audio of the session's current packet. Supports range requests.
//	@Tags			sessions
//	@Produce		mpeg
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{file}		binary
//	@Success		206	{file}		binary
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/audio [get]
func (e *PageAudioEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	servePacketMedia(w, r, func(p *packet.Packet) ([]byte, string, string) {
		return p.Audio, p.AudioMIME, fmt.Sprintf("page_%04d.mp3", p.PageNumber)
	})
}

func (e *PageAudioEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "audio <id>",
		Short: "Download the current narration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFile == "" {
				outputFile = args[0] + ".mp3"
			}
			return download(cmd, getServerURL(), "/api/sessions/"+args[0]+"/audio", outputFile)
		},
	}
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Output file path")
	return cmd
}

// servePacketMedia serves one part of the current packet. BuiltAt is the
// modification time, so a replaced packet never matches a stale If-Modified-Since.
func servePacketMedia(w http.ResponseWriter, r *http.Request, pick func(*packet.Packet) (data []byte, mime, name string)) {
	s, ok := lookupSession(w, r)
	if !ok {
		return
	}
	p := s.Packet()
	if p == nil {
		writeError(w, http.StatusNotFound, "session has no packet")
		return
	}
	data, mime, name := pick(p)
	if len(data) == 0 {
		writeError(w, http.StatusNotFound, "packet has no media")
		return
	}
	if mime != "" {
		w.Header().Set("Content-Type", mime)
	}
	w.Header().Set("Cache-Control", "no-cache")
	http.ServeContent(w, r, name, p.BuiltAt, bytes.NewReader(data))
}

// download saves a binary response to path. The file is removed when the
// request fails.
func download(cmd *cobra.Command, serverURL, path, file string) error {
	f, err := os.Create(file)
	if err != nil {
		return err
	}

	client := api.NewClient(serverURL)
	mime, err := client.Download(cmd.Context(), path, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(file)
		return err
	}

	if api.GetOutputFormat() == api.OutputFormatJSON {
		return api.Output(map[string]string{"file": file, "content_type": mime})
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", file, mime)
	return nil
}
