package v1

const (
	ContentLayoutOriginal    = "Original"
	ContentLayoutSubfolder   = "Subfolder"
	ContentLayoutNoSubfolder = "NoSubfolder"
)

// AcquisitionRequest asks the gateway to register and start a torrent on the
// download backend. SelectedFilePaths are "/"-joined file paths from the
// resolved metadata record; an empty list means "all files".
type AcquisitionRequest struct {
	Identifier             string   `json:"identifier"`
	SavePath               string   `json:"savePath"`
	StartPaused            bool     `json:"startPaused"`
	Sequential             bool     `json:"sequential"`
	FirstLastPiecePriority bool     `json:"firstLastPiecePriority"`
	ContentLayout          string   `json:"contentLayout"`
	SelectedFilePaths      []string `json:"selectedFilePaths"`
}

// AcquisitionResult reports the outcome of one acquisition workflow. Stage
// and Error are only set when the workflow halted early; earlier stages may
// already have committed state on the backend.
type AcquisitionResult struct {
	Hash  string `json:"hash"`
	Stage string `json:"stage,omitempty"`
	Error string `json:"error,omitempty"`
}
