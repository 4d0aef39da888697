package endpoints

import (
	"net/http"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/lectern/internal/api"
)

// StartLessonRequest starts teaching from a page.
type StartLessonRequest struct {
	// Credential is the generation API key. Empty uses the server's
	// configured key, if any.
	Credential string `json:"credential,omitempty"`
	StartPage  int    `json:"start_page"`
}

// NextBatchRequest continues after a break.
type NextBatchRequest struct {
	Credential string `json:"credential,omitempty"`
}

// StartLessonEndpoint handles POST /api/sessions/{id}/start.
type StartLessonEndpoint struct{}

func (e *StartLessonEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/start", e.handler
}

func (e *StartLessonEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Start lesson
//	@Description	Build the first page's packet and begin teaching. Responds once the packet is ready.
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Session ID"
//	@Param			request	body		StartLessonRequest	true	"Credential and start page"
//	@Success		200		{object}	SessionResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/start [post]
func (e *StartLessonEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(w, r)
	if !ok {
		return
	}

	var req StartLessonRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.Start(r.Context(), req.Credential, req.StartPage); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s))
}

func (e *StartLessonEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req StartLessonRequest
	cmd := &cobra.Command{
		Use:   "start <id>",
		Short: "Start teaching from a page",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/start", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().IntVar(&req.StartPage, "page", 1, "Page to start from (1-based)")
	cmd.Flags().StringVar(&req.Credential, "credential", "", "Generation API key (default: server's configured key)")
	return cmd
}

// StopLessonEndpoint handles POST /api/sessions/{id}/stop.
type StopLessonEndpoint struct{}

func (e *StopLessonEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/stop", e.handler
}

func (e *StopLessonEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Stop lesson
//	@Description	Abandon any build and return to preview immediately
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	SessionResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/stop [post]
func (e *StopLessonEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(w, r)
	if !ok {
		return
	}
	s.ForceStop()
	writeJSON(w, http.StatusOK, sessionResponse(s))
}

func (e *StopLessonEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "stop <id>",
		Short: "Stop the lesson and return to preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/stop", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// NextBatchEndpoint handles POST /api/sessions/{id}/next.
type NextBatchEndpoint struct{}

func (e *NextBatchEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/next", e.handler
}

func (e *NextBatchEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Next batch
//	@Description	From a break, build the first page of the following batch and resume teaching
//	@Tags			sessions
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string				true	"Session ID"
//	@Param			request	body		NextBatchRequest	false	"Credential"
//	@Success		200		{object}	SessionResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Failure		422		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Router			/api/sessions/{id}/next [post]
func (e *NextBatchEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(w, r)
	if !ok {
		return
	}

	var req NextBatchRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	if err := s.NextBatch(r.Context(), req.Credential); err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse(s))
}

func (e *NextBatchEndpoint) Command(getServerURL func() string) *cobra.Command {
	var req NextBatchRequest
	cmd := &cobra.Command{
		Use:   "next <id>",
		Short: "Continue with the next batch after a break",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/next", req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVar(&req.Credential, "credential", "", "Generation API key (default: the one the lesson started with)")
	return cmd
}

// PreviewEndpoint handles POST /api/sessions/{id}/preview.
type PreviewEndpoint struct{}

func (e *PreviewEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/sessions/{id}/preview", e.handler
}

func (e *PreviewEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Return to preview
//	@Description	Leave a break (or any mode) for preview
//	@Tags			sessions
//	@Produce		json
//	@Param			id	path		string	true	"Session ID"
//	@Success		200	{object}	SessionResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/sessions/{id}/preview [post]
func (e *PreviewEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	s, ok := lookupSession(w, r)
	if !ok {
		return
	}
	s.ReturnToPreview()
	writeJSON(w, http.StatusOK, sessionResponse(s))
}

func (e *PreviewEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "preview <id>",
		Short: "Return a session to preview",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client := api.NewClient(getServerURL())
			var resp SessionResponse
			if err := client.Post(cmd.Context(), "/api/sessions/"+args[0]+"/preview", nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
