package state

import (
	"errors"
	"fmt"
	"log/slog"
)

// RejectionCode classifies why an action left the state unchanged.
type RejectionCode string

const (
	RejectUnknownAction RejectionCode = "unknown_action"
	RejectMalformed     RejectionCode = "malformed_action"
	RejectGenre         RejectionCode = "genre_mismatch"
	RejectNotFound      RejectionCode = "not_found"
	RejectPrecondition  RejectionCode = "precondition_failed"
	RejectInsufficient  RejectionCode = "insufficient_resources"
	RejectCapacity      RejectionCode = "capacity_exceeded"
)

// Rejection describes a precondition failure.
type Rejection struct {
	Code    RejectionCode `json:"code"`
	Message string        `json:"message"`
}

func (r *Rejection) Error() string {
	return string(r.Code) + ": " + r.Message
}

func reject(code RejectionCode, format string, args ...any) *Rejection {
	return &Rejection{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Decision reports whether Reduce applied an action.
type Decision struct {
	Applied   bool       `json:"applied"`
	Rejection *Rejection `json:"rejection,omitempty"`
}

var discard = slog.New(slog.DiscardHandler)

// Apply returns the state after a. When any precondition fails it returns
// prior itself, unchanged. prior is never mutated.
func Apply(prior *GameState, a Action) *GameState {
	next, _ := Reduce(prior, a)
	return next
}

// Reduce is Apply with the reason for a no-op made visible.
func Reduce(prior *GameState, a Action) (*GameState, Decision) {
	return reduce(prior, a, discard)
}

// ApplyEnvelope decodes env and applies it. Unknown kinds and malformed
// payloads leave prior unchanged.
func ApplyEnvelope(prior *GameState, env Envelope) (*GameState, Decision) {
	return reduceEnvelope(prior, env, discard)
}

func reduceEnvelope(prior *GameState, env Envelope, logger *slog.Logger) (*GameState, Decision) {
	a, err := env.Decode()
	if err != nil {
		code := RejectMalformed
		if errors.Is(err, ErrUnknownAction) {
			code = RejectUnknownAction
		}
		return prior, Decision{Rejection: &Rejection{Code: code, Message: err.Error()}}
	}
	return reduce(prior, a, logger)
}

func reduce(prior *GameState, a Action, logger *slog.Logger) (next *GameState, d Decision) {
	if prior == nil {
		return nil, Decision{Rejection: reject(RejectMalformed, "no state to apply to")}
	}
	if a == nil {
		return prior, Decision{Rejection: reject(RejectUnknownAction, "nil action")}
	}

	// A panic anywhere below is reported as a rejection; prior is untouched.
	defer func() {
		if p := recover(); p != nil {
			logger.Error("Reducer panic", "kind", a.Kind(), "panic", p)
			next = prior
			d = Decision{Rejection: reject(RejectMalformed, "%s could not be applied", a.Kind())}
		}
	}()

	work := prior.Clone()
	result, rej := dispatch(work, a, logger)
	if rej != nil {
		return prior, Decision{Rejection: rej}
	}
	return result, Decision{Applied: true}
}

// dispatch mutates the working copy gs. Most actions return gs itself;
// load and revert return a different state.
func dispatch(gs *GameState, a Action, logger *slog.Logger) (*GameState, *Rejection) {
	switch a := a.(type) {
	case EquipItem:
		return gs, equipItem(gs, a)
	case UnequipItem:
		return gs, unequipItem(gs, a)
	case EquipTalent:
		return gs, equipTalent(gs, a)
	case UnequipTalent:
		return gs, unequipTalent(gs, a)
	case BreakthroughSkill:
		return gs, breakthroughSkill(gs, a)
	case PurchaseListing:
		return gs, purchaseListing(gs, a)
	case CraftItem:
		return gs, craftItem(gs, a)
	case UnlockMeridian:
		return gs, unlockMeridian(gs, a)
	case CreateGuild:
		return gs, createGuild(gs, a)
	case RecruitMember:
		return gs, recruitMember(gs, a)
	case UpgradeBuilding:
		return gs, upgradeBuilding(gs, a)
	case CollectIncome:
		return gs, collectIncome(gs)
	case SetDiplomacy:
		return gs, setDiplomacy(gs, a)
	case RenameEntity:
		return gs, renameEntity(gs, a)
	case DeleteMemory:
		return gs, deleteMemory(gs, a)
	case RevertTurn:
		return revertTurn(gs, a)
	case ApplyCombatResult:
		return gs, applyCombatResult(gs, a)
	case LoadState:
		return loadState(gs, a)
	case ApplyKnowledgeUpdate:
		if a.Update == nil {
			return nil, reject(RejectMalformed, "update is required")
		}
		NewDeltaWorker(gs, a.Update, logger).Apply()
		return gs, nil
	default:
		return nil, reject(RejectUnknownAction, "unhandled action %T", a)
	}
}

// Reducer applies actions and logs rejections.
type Reducer struct {
	logger *slog.Logger
}

// NewReducer creates a reducer that logs through logger.
func NewReducer(logger *slog.Logger) *Reducer {
	if logger == nil {
		logger = discard
	}
	return &Reducer{logger: logger}
}

// Apply reduces a against gs.
func (r *Reducer) Apply(gs *GameState, a Action) (*GameState, Decision) {
	next, d := reduce(gs, a, r.logger)
	r.log(gs, kindOf(a), d)
	return next, d
}

// ApplyEnvelope decodes and reduces env against gs.
func (r *Reducer) ApplyEnvelope(gs *GameState, env Envelope) (*GameState, Decision) {
	next, d := reduceEnvelope(gs, env, r.logger)
	r.log(gs, env.Kind, d)
	return next, d
}

func (r *Reducer) log(gs *GameState, kind ActionKind, d Decision) {
	gameID := ""
	if gs != nil {
		gameID = gs.ID.String()
	}
	if d.Rejection != nil {
		r.logger.Debug("Action rejected",
			"game_id", gameID,
			"kind", kind,
			"code", d.Rejection.Code,
			"reason", d.Rejection.Message)
		return
	}
	r.logger.Debug("Action applied", "game_id", gameID, "kind", kind)
}

func kindOf(a Action) ActionKind {
	if a == nil {
		return ""
	}
	return a.Kind()
}
