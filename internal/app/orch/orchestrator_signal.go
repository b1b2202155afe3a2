package orch

import (
	"errors"

	"github.com/dkeye/MedCall/internal/app"
	"github.com/dkeye/MedCall/internal/core"
	"github.com/dkeye/MedCall/internal/domain"
	"github.com/rs/zerolog/log"
)

// Offer, Answer and ICECandidate are point-to-point. The sender is never told
// when the target is gone.

func (o *Orchestrator) Offer(conn domain.ConnID, e core.Offer) {
	userID, name, _ := o.Registry.Identity(conn)
	o.forward(conn, e.Target, core.EventOffer, core.OfferOut{
		Type:           core.EventOffer,
		Offer:          e.Offer,
		SenderConnID:   conn,
		SenderUserID:   userID,
		SenderUserName: name,
	})
}

func (o *Orchestrator) Answer(conn domain.ConnID, e core.Answer) {
	o.forward(conn, e.Target, core.EventAnswer, core.AnswerOut{
		Type:         core.EventAnswer,
		Answer:       e.Answer,
		SenderConnID: conn,
	})
}

func (o *Orchestrator) ICECandidate(conn domain.ConnID, e core.ICECandidate) {
	o.forward(conn, e.Target, core.EventICECandidate, core.ICECandidateOut{
		Type:         core.EventICECandidate,
		Candidate:    e.Candidate,
		SenderConnID: conn,
	})
}

func (o *Orchestrator) forward(from, target domain.ConnID, typ string, v any) {
	f, err := core.Encode(v)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("type", typ).Msg("encode")
		return
	}
	err = o.Relay.Forward(target, f)
	switch {
	case err == nil:
		o.Metrics.Forward(typ, "delivered")
	case errors.Is(err, core.ErrBackpressure):
		o.Metrics.Forward(typ, "dropped")
		o.onBackpressure(target)
	case errors.Is(err, app.ErrUnreachable):
		o.Metrics.Forward(typ, "unreachable")
		log.Debug().Str("module", "orch").Str("from", string(from)).Str("target", string(target)).Str("type", typ).Msg("target unreachable")
	default:
		log.Warn().Err(err).Str("module", "orch").Str("target", string(target)).Msg("forward failed")
	}
}
