package domain

// InputKind is the kind of input a game is waiting on.
type InputKind string

const (
	InputDefenseNumber  InputKind = "DEFENSE_NUMBER"
	InputOffenseNumber  InputKind = "OFFENSE_NUMBER"
	InputCoinTossCall   InputKind = "COIN_TOSS_CALL"
	InputCoinTossChoice InputKind = "COIN_TOSS_CHOICE"
)

// NeedsNumber reports whether this input kind is satisfied by a play number.
func (k InputKind) NeedsNumber() bool {
	return k == InputDefenseNumber || k == InputOffenseNumber
}

// PendingAction is a backend-reported fact: a specific game, at a specific
// location, is waiting on a specific party for a specific kind of input.
// Fetched fresh per event and never cached; the backend stays the source of
// truth for what a game is waiting on.
type PendingAction struct {
	GameID     string
	Kind       InputKind
	LocationID string // thread ID for channel input, coach user ID for DM input
	Overtime   bool   // coin toss choice vocabulary switches in overtime
	Label      string // display label used in user-facing error messages
}

// Game mirrors the backend's game record. Field names follow the backend's
// snake_case JSON.
type Game struct {
	GameID          string `json:"game_id"`
	HomeTeam        string `json:"home_team"`
	AwayTeam        string `json:"away_team"`
	HomeScore       int    `json:"home_score"`
	AwayScore       int    `json:"away_score"`
	Quarter         int    `json:"quarter"`
	Clock           string `json:"clock"`
	Down            int    `json:"down"`
	YardsToGo       int    `json:"yards_to_go"`
	BallLocation    int    `json:"ball_location"`
	Possession      string `json:"possession"`
	Status          string `json:"game_status"`   // PREGAME | OPENING_KICKOFF | IN_PROGRESS | OVERTIME | FINAL
	WaitingOn       string `json:"waiting_on"`    // home | away
	HomeCoachID     string `json:"home_coach_discord_id"`
	AwayCoachID     string `json:"away_coach_discord_id"`
	ThreadID        string `json:"home_platform_id"`
	CoinTossWinner  string `json:"coin_toss_winner"`
	CoinTossChoice  string `json:"coin_toss_choice"`
	CurrentPlayID   string `json:"current_play_id"`
}

// Play mirrors the backend's play record returned by a submission.
type Play struct {
	PlayID      string `json:"play_id"`
	GameID      string `json:"game_id"`
	Result      string `json:"result"`
	Difference  int    `json:"difference"`
	YardsGained int    `json:"yards_gained"`
	HomeScore   int    `json:"home_score"`
	AwayScore   int    `json:"away_score"`
	Quarter     int    `json:"quarter"`
	Clock       string `json:"clock"`
	Down        int    `json:"down"`
	YardsToGo   int    `json:"yards_to_go"`
}

// SubmissionResult is the outcome of one backend write. Exactly one of Game
// and Err is populated.
type SubmissionResult struct {
	Game *Game
	Play *Play
	Err  error
}

// PlayCall is an offensive play call extracted from message text.
type PlayCall string

const (
	PlayRun       PlayCall = "RUN"
	PlayPass      PlayCall = "PASS"
	PlaySpike     PlayCall = "SPIKE"
	PlayKneel     PlayCall = "KNEEL"
	PlayFieldGoal PlayCall = "FIELD_GOAL"
	PlayPunt      PlayCall = "PUNT"
	PlayPAT       PlayCall = "PAT"
	PlayTwoPoint  PlayCall = "TWO_POINT"
)

// RunoffType is a clock-runoff directive attached to an offensive submission.
type RunoffType string

const (
	RunoffNormal RunoffType = "NORMAL"
	RunoffChew   RunoffType = "CHEW"
	RunoffHurry  RunoffType = "HURRY"
)
