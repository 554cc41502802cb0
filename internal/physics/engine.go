// Package physics is the pure Pong engine: a (State, dt) -> (State, []Event)
// step function with no I/O, no goroutines, no locking, generalized from the
// Vec2/event-driven style of internal/game/pool_physics.go and
// internal/game/vector2d.go but implementing fixed-dt paddle/ball dynamics
// instead of exact-time billiards collision solving — grounded step-by-step
// in original_source/backend/pong_game/game_logic.py's update_game_physics.
package physics

import "math/rand"

type Ball struct {
	Position Vec2
	Velocity Vec2
	Speed    float64
}

type Paddle struct {
	Y     float64
	Score int
}

// State is the physics-only slice of a running room: ball, paddles, scores,
// and the difficulty tuning the ball speed ramps against. It holds no
// connection/transport state — that lives one layer up in internal/room.
type State struct {
	Ball       Ball
	Left       Paddle
	Right      Paddle
	Difficulty string
}

// EventType enumerates what can happen in one Step call.
type EventType string

const (
	EventWallBounce   EventType = "wall_bounce"
	EventPaddleBounce EventType = "paddle_bounce"
	EventScoreLeft    EventType = "score_left"
	EventScoreRight   EventType = "score_right"
)

type Event struct {
	Type EventType
}

// NewState is the room-state factory from SPEC_FULL §4.5: a centered ball
// served toward the right, default paddle positions, zeroed scores.
func NewState(difficulty string) State {
	settings := Difficulties[difficulty]
	return State{
		Ball: Ball{
			Position: NewVec2(BaseWidth/2, BaseHeight/2),
			Velocity: NewVec2(settings.BallSpeed, settings.BallSpeed*BaseHeight/BaseWidth),
			Speed:    settings.BallSpeed,
		},
		Left:       Paddle{Y: BaseHeight/2 - PaddleHeight/2},
		Right:      Paddle{Y: BaseHeight/2 - PaddleHeight/2},
		Difficulty: difficulty,
	}
}

// ClampPaddle enforces the server-side paddle bound regardless of what a
// client submits (property 3 in SPEC_FULL §8 — anti-cheat clamp).
func ClampPaddle(y float64) float64 {
	if y < 0 {
		return 0
	}
	if y > BaseHeight-PaddleHeight {
		return BaseHeight - PaddleHeight
	}
	return y
}

// resetBall re-centers the ball and serves it toward the side that was NOT
// just scored on, mirroring game_logic.py's reset_ball.
func resetBall(s *State, direction float64, rng *rand.Rand) {
	settings := Difficulties[s.Difficulty]
	s.Ball.Position = NewVec2(BaseWidth/2, BaseHeight/2)
	s.Ball.Speed = settings.BallSpeed
	s.Ball.Velocity = NewVec2(
		direction*settings.BallSpeed,
		((rng.Float64()*2-1)*settings.BallSpeed)/2,
	)
}

// Step advances the simulation by exactly dt seconds. rng supplies the
// bounce-angle jitter that keeps rallies from settling into a perfectly
// periodic loop; reusing the same rng sequence against the same starting
// State reproduces the same trajectory (property 1 — determinism).
func Step(s State, dt float64, rng *rand.Rand) (State, []Event) {
	settings := Difficulties[s.Difficulty]
	var events []Event

	s.Ball.Position = s.Ball.Position.Plus(s.Ball.Velocity.Times(dt * 60))

	// Wall collisions (top/bottom)
	if s.Ball.Position.Y+BallRadius >= BaseHeight && s.Ball.Velocity.Y > 0 {
		s.Ball.Velocity.Y = -s.Ball.Velocity.Y + (rng.Float64()-0.5)*0.1
		events = append(events, Event{Type: EventWallBounce})
	}
	if s.Ball.Position.Y-BallRadius <= 0 && s.Ball.Velocity.Y < 0 {
		s.Ball.Velocity.Y = -s.Ball.Velocity.Y + (rng.Float64()-0.5)*0.1
		events = append(events, Event{Type: EventWallBounce})
	}

	ballLeft := s.Ball.Position.X - BallRadius
	ballRight := s.Ball.Position.X + BallRadius
	ballTop := s.Ball.Position.Y - BallRadius
	ballBottom := s.Ball.Position.Y + BallRadius

	const leftPaddleX = 20.0
	rightPaddleX := BaseWidth - 20 - PaddleWidth

	leftPaddleRight := leftPaddleX + PaddleWidth
	leftPaddleTop := s.Left.Y
	leftPaddleBottom := s.Left.Y + PaddleHeight

	rightPaddleLeft := rightPaddleX
	rightPaddleTop := s.Right.Y
	rightPaddleBottom := s.Right.Y + PaddleHeight

	if ballLeft <= leftPaddleRight && ballLeft > leftPaddleX &&
		ballTop <= leftPaddleBottom && ballBottom >= leftPaddleTop &&
		s.Ball.Velocity.X < 0 {
		bouncePaddle(&s, settings, leftPaddleTop, rng, 1)
		events = append(events, Event{Type: EventPaddleBounce})
	} else if ballRight >= rightPaddleLeft && ballRight < rightPaddleLeft+PaddleWidth &&
		ballTop <= rightPaddleBottom && ballBottom >= rightPaddleTop &&
		s.Ball.Velocity.X > 0 {
		bouncePaddle(&s, settings, rightPaddleTop, rng, -1)
		events = append(events, Event{Type: EventPaddleBounce})
	}

	switch {
	case s.Ball.Position.X+BallRadius < 0:
		s.Right.Score++
		resetBall(&s, 1, rng)
		events = append(events, Event{Type: EventScoreRight})
	case s.Ball.Position.X-BallRadius > BaseWidth:
		s.Left.Score++
		resetBall(&s, -1, rng)
		events = append(events, Event{Type: EventScoreLeft})
	}

	return s, events
}

// bouncePaddle reverses X, derives the new Y angle from hit offset (clamped
// to +-0.8 of paddle half-height), and ramps speed up to the difficulty cap.
func bouncePaddle(s *State, settings DifficultySettings, paddleTop float64, rng *rand.Rand, newSign float64) {
	hitPosition := (s.Ball.Position.Y - (paddleTop + PaddleHeight/2)) / (PaddleHeight / 2)
	if hitPosition > 0.8 {
		hitPosition = 0.8
	}
	if hitPosition < -0.8 {
		hitPosition = -0.8
	}

	s.Ball.Speed = s.Ball.Speed * (1 + settings.IncrementMultiplier)
	if s.Ball.Speed > settings.MaxBallSpeed {
		s.Ball.Speed = settings.MaxBallSpeed
	}

	s.Ball.Velocity.X = newSign * s.Ball.Speed
	s.Ball.Velocity.Y = fix(hitPosition*s.Ball.Speed + (rng.Float64()-0.5)*0.2)
}
