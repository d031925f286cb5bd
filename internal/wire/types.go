package wire

import "strconv"

// MessageType identifies the request or response kind carried by an Envelope.
type MessageType int32

const (
	LoginRequest MessageType = iota + 1
	LoginResponse
	LogoutRequest
	GetElections
	GetCandidates
	GetPledges
	EvaluatePledge
	CancelEvaluation
	GetUserEvaluation
	GetStatistics
	RefreshElections
	RefreshCandidates
	RefreshPledges
	RefreshAll
	Error
	Success
)

var messageTypeNames = map[MessageType]string{
	LoginRequest:      "login_request",
	LoginResponse:     "login_response",
	LogoutRequest:     "logout_request",
	GetElections:      "get_elections",
	GetCandidates:     "get_candidates",
	GetPledges:        "get_pledges",
	EvaluatePledge:    "evaluate_pledge",
	CancelEvaluation:  "cancel_evaluation",
	GetUserEvaluation: "get_user_evaluation",
	GetStatistics:     "get_statistics",
	RefreshElections:  "refresh_elections",
	RefreshCandidates: "refresh_candidates",
	RefreshPledges:    "refresh_pledges",
	RefreshAll:        "refresh_all",
	Error:             "error",
	Success:           "success",
}

func (t MessageType) String() string {
	if s, ok := messageTypeNames[t]; ok {
		return s
	}
	return "unknown_" + strconv.Itoa(int(t))
}

// Status is the HTTP-like result code of a response.
type Status int32

const (
	StatusOK            Status = 200
	StatusBadRequest    Status = 400
	StatusUnauthorized  Status = 401
	StatusNotFound      Status = 404
	StatusInternalError Status = 500
)

func (s Status) String() string {
	return strconv.Itoa(int(s))
}
