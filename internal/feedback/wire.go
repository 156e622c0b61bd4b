package feedback

import (
	"encoding/json"
	"strconv"
)

// SubmitRequest is the body of the submit-feedback endpoint. Ratios travel as
// decimal strings.
type SubmitRequest struct {
	BoothID          string `json:"booth_id"`
	PraiseRatio      string `json:"praise_ratio"`
	AdviceRatio      string `json:"advice_ratio"`
	RawText          string `json:"raw_text"`
	VisitorAttribute string `json:"visitor_attribute"`
}

// SubmitResponse is the 201 body of the submit-feedback endpoint.
type SubmitResponse struct {
	Message    string   `json:"message"`
	Status     string   `json:"status,omitempty"`
	InsertedID RecordID `json:"inserted_id"`
}

// RecordID is the server-assigned identifier. Older backends send it as a
// string, newer ones as a number.
type RecordID string

func (id *RecordID) UnmarshalJSON(b []byte) error {
	var n json.Number
	if err := json.Unmarshal(b, &n); err == nil {
		*id = RecordID(n.String())
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	*id = RecordID(s)
	return nil
}

func (id RecordID) MarshalJSON() ([]byte, error) {
	if n, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return json.Marshal(n)
	}
	return json.Marshal(string(id))
}

// TranscribeRequest is the body of the transcription endpoint.
type TranscribeRequest struct {
	AudioData string `json:"audio_data"`
	MimeType  string `json:"mime_type"`
	BoothID   string `json:"booth_id"`
}

// TranscribeResponse is the success body of the transcription endpoint.
type TranscribeResponse struct {
	Text    string `json:"stt_text"`
	Summary string `json:"summary_text"`
}
