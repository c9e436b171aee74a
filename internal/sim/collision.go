package sim

import "fmt"

// ContactKind tags what an agent is overlapping with. Detection itself is
// external (physics, or the viewer's circle test); only the verdict policy
// lives here.
type ContactKind int

const (
	ContactAgent  ContactKind = iota // another agent
	ContactHazard                    // a static lethal hazard
)

// Contact is one reported overlap for the current tick.
type Contact struct {
	Agent AgentID
	Other AgentID // meaningful for ContactAgent only
	Kind  ContactKind
}

// resolveContacts applies the collision policy to this tick's contact feed:
// an agent touching a hazard is destroyed; when agents of opposing states
// touch, exactly one — the seeking party — is destroyed. Same-state contact
// is harmless jostling.
func (s *Sim) resolveContacts() {
	if len(s.contacts) == 0 {
		return
	}
	destroyed := map[AgentID]bool{}
	for _, c := range s.contacts {
		if destroyed[c.Agent] {
			continue
		}
		a := s.agent(c.Agent)
		if a == nil {
			continue
		}
		switch c.Kind {
		case ContactHazard:
			destroyed[c.Agent] = true
			s.destroyAgent(a, EventAgentDestroyedByHazard)
		case ContactAgent:
			if destroyed[c.Other] {
				continue
			}
			b := s.agent(c.Other)
			if b == nil || a.state == b.state {
				continue
			}
			victim := a
			if b.state == StateSeeking {
				victim = b
			}
			destroyed[victim.id] = true
			s.destroyAgent(victim, EventAgentLost)
		}
	}
	s.contacts = s.contacts[:0]
}

// destroyAgent removes an agent from the live set and emits the verdict
// event.
func (s *Sim) destroyAgent(a *Agent, kind EventKind) {
	for i, live := range s.agents {
		if live == a {
			s.agents = append(s.agents[:i], s.agents[i+1:]...)
			break
		}
	}
	s.lostCount++
	s.emit(Event{Kind: kind, Agent: a.id})
	s.log.Add(s.tick, agentLabel(a.id), "agent", kind.String(),
		fmt.Sprintf("at (%.1f,%.1f) state=%s", a.pos.X, a.pos.Y, a.state), 0)
}
