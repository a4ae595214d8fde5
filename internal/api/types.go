package api

import (
	"github.com/abelbrown/stagewatch/internal/emotion"
	"github.com/abelbrown/stagewatch/internal/stage"
)

const noBotMessage = "No response available."

// TeamInfo is the normalized /teaminfo response.
type TeamInfo struct {
	Distribution stage.Distribution
	FinalStage   string
	Feedback     string
}

// MemberInfo is the normalized /memberinfo response. Optional fields are
// explicit: Has* reports whether the server sent them.
type MemberInfo struct {
	Distribution        stage.Distribution
	FinalStage          string
	PersonalFeedback    string
	HasPersonalFeedback bool
	AccumEmotions       emotion.Scores
	HasAccumEmotions    bool
}

// ChatRequest is the /chat payload. MemberName is omitted when empty.
type ChatRequest struct {
	Text       string `json:"text"`
	TeamName   string `json:"team_name"`
	MemberName string `json:"member_name,omitempty"`
}

// ChatReply is the normalized /chat response.
type ChatReply struct {
	BotMessage    string
	Distribution  stage.Distribution
	Stage         string
	Feedback      string
	LastEmotions  emotion.Scores
	AccumEmotions emotion.Scores
}

// AnalyzeRequest is the /analyze payload.
type AnalyzeRequest struct {
	TeamName   string   `json:"team_name"`
	MemberName string   `json:"member_name,omitempty"`
	Lines      []string `json:"lines"`
}

// AnalysisResult is the normalized /analyze and /analyze-file response.
type AnalysisResult struct {
	FinalStage   string
	Feedback     string
	Distribution stage.Distribution
}

type resetRequest struct {
	Text       string `json:"text"`
	TeamName   string `json:"team_name"`
	MemberName string `json:"member_name"`
}

// Wire shapes. Pointers mark fields whose absence matters.

type wireTeamInfo struct {
	Distribution map[string]float64 `json:"distribution"`
	FinalStage   *string            `json:"final_stage"`
	Feedback     *string            `json:"feedback"`
}

type wireMemberInfo struct {
	Distribution     map[string]float64 `json:"distribution"`
	FinalStage       *string            `json:"final_stage"`
	PersonalFeedback *string            `json:"personal_feedback"`
	AccumEmotions    *emotion.Scores    `json:"accum_emotions"`
}

type wireChatReply struct {
	BotMessage      *string            `json:"bot_message"`
	Distribution    map[string]float64 `json:"distribution"`
	Stage           *string            `json:"stage"`
	TeamFeedback    *string            `json:"team_feedback"`
	Feedback        *string            `json:"feedback"`
	LastEmotionDist emotion.Scores     `json:"last_emotion_dist"`
	AccumEmotions   emotion.Scores     `json:"accum_emotions"`
}

type wireAnalysis struct {
	FinalStage   *string            `json:"final_stage"`
	Feedback     *string            `json:"feedback"`
	Distribution map[string]float64 `json:"distribution"`
}

type wireReset struct {
	Message string `json:"message"`
}

func strOr(p *string, fallback string) string {
	if p == nil || *p == "" {
		return fallback
	}
	return *p
}

func (w wireTeamInfo) normalize() TeamInfo {
	return TeamInfo{
		Distribution: stage.FromMap(w.Distribution),
		FinalStage:   strOr(w.FinalStage, stage.Uncertain),
		Feedback:     strOr(w.Feedback, ""),
	}
}

func (w wireMemberInfo) normalize() MemberInfo {
	m := MemberInfo{
		Distribution:        stage.FromMap(w.Distribution),
		FinalStage:          strOr(w.FinalStage, stage.Uncertain),
		PersonalFeedback:    strOr(w.PersonalFeedback, ""),
		HasPersonalFeedback: w.PersonalFeedback != nil,
	}
	if w.AccumEmotions != nil {
		m.AccumEmotions = *w.AccumEmotions
		m.HasAccumEmotions = true
	}
	return m
}

// normalize prefers team_feedback over feedback, matching the service's
// later revisions where feedback became the personal one.
func (w wireChatReply) normalize() ChatReply {
	feedback := strOr(w.TeamFeedback, "")
	if feedback == "" {
		feedback = strOr(w.Feedback, "")
	}
	return ChatReply{
		BotMessage:    strOr(w.BotMessage, noBotMessage),
		Distribution:  stage.FromMap(w.Distribution),
		Stage:         strOr(w.Stage, stage.Uncertain),
		Feedback:      feedback,
		LastEmotions:  w.LastEmotionDist,
		AccumEmotions: w.AccumEmotions,
	}
}

func (w wireAnalysis) normalize() AnalysisResult {
	return AnalysisResult{
		FinalStage:   strOr(w.FinalStage, stage.Uncertain),
		Feedback:     strOr(w.Feedback, ""),
		Distribution: stage.FromMap(w.Distribution),
	}
}
