package dto

// SelectModelRequest is the body for POST /chat/select_model.
type SelectModelRequest struct {
	Model string `json:"model"`
}

// AskRequest is the body for POST /chat/ask.
type AskRequest struct {
	UserInput string `json:"user_input"`
}

// AskResponse is the data payload for a successful ask.
type AskResponse struct {
	Response string `json:"response"`
	Model    string `json:"model"`
}
