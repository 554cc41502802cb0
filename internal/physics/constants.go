package physics

// Geometry constants from SPEC_FULL §4.4.
const (
	BaseWidth    = 800.0
	BaseHeight   = 500.0
	PaddleWidth  = 18.0
	PaddleHeight = 100.0
	BallRadius   = 10.0

	PaddleSpeed = 8.0

	PointsToWinMatch   = 5
	MatchesToWinGame   = 3
)

// DifficultySettings holds the per-difficulty tuning from SPEC_FULL §4.4.
type DifficultySettings struct {
	BallSpeed           float64
	IncrementMultiplier float64
	MaxBallSpeed        float64
}

var Difficulties = map[string]DifficultySettings{
	"easy":   {BallSpeed: 3, IncrementMultiplier: 0.02, MaxBallSpeed: 6},
	"medium": {BallSpeed: 5, IncrementMultiplier: 0.05, MaxBallSpeed: 8},
	"hard":   {BallSpeed: 7, IncrementMultiplier: 0.10, MaxBallSpeed: 11},
}

// ValidDifficulty reports whether a difficulty label has tuning settings.
func ValidDifficulty(d string) bool {
	_, ok := Difficulties[d]
	return ok
}
