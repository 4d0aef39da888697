package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/api"
	"github.com/jackzampolin/lectern/internal/pdfsource"
	"github.com/jackzampolin/lectern/internal/svcctx"
)

// ListLibraryResponse lists the documents a lesson can be taught from.
type ListLibraryResponse struct {
	Dir       string               `json:"dir"`
	Documents []pdfsource.Document `json:"documents"`
	Total     int                  `json:"total"`
}

// ListLibraryEndpoint handles GET /api/library.
type ListLibraryEndpoint struct{}

func (e *ListLibraryEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/library", e.handler
}

func (e *ListLibraryEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List documents
//	@Description	List chapter PDFs in the library with their page counts
//	@Tags			library
//	@Produce		json
//	@Success		200	{object}	ListLibraryResponse
//	@Failure		400	{object}	ErrorResponse
//	@Failure		422	{object}	ErrorResponse
//	@Router			/api/library [get]
func (e *ListLibraryEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	library := svcctx.LibraryFrom(r.Context())
	if library == nil {
		writeError(w, http.StatusServiceUnavailable, "library not initialized")
		return
	}

	docs, err := library.List()
	if err != nil {
		writeFailure(w, err)
		return
	}
	if docs == nil {
		docs = []pdfsource.Document{}
	}

	writeJSON(w, http.StatusOK, ListLibraryResponse{
		Dir:       library.Dir(),
		Documents: docs,
		Total:     len(docs),
	})
}

func (e *ListLibraryEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List documents in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp ListLibraryResponse
			if err := client.Get(cmd.Context(), "/api/library", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// CoverEndpoint handles GET /api/library/{volume}/cover.
type CoverEndpoint struct{}

func (e *CoverEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/library/{volume}/cover", e.handler
}

func (e *CoverEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Get volume cover
//	@Description	Serve the cover image of a volume
//	@Tags			library
//	@Produce		png,jpeg
//	@Param			volume	path		string	true	"Volume name"
//	@Success		200		{file}		binary
//	@Failure		404		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Router			/api/library/{volume}/cover [get]
func (e *CoverEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	library := svcctx.LibraryFrom(r.Context())
	if library == nil {
		writeError(w, http.StatusServiceUnavailable, "library not initialized")
		return
	}

	data, mime, err := library.Cover(r.PathValue("volume"))
	if err != nil {
		writeFailure(w, err)
		return
	}

	w.Header().Set("Content-Type", mime)
	w.Header().Set("Cache-Control", "max-age=3600")
	w.Write(data)
}

func (e *CoverEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "cover <volume>",
		Short: "Download a volume's cover image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if outputFile == "" {
				outputFile = args[0] + "_cover"
			}
			return download(cmd, getServerURL(), "/api/library/"+args[0]+"/cover", outputFile)
		},
	}
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Output file path")
	return cmd
}
