package entities

import "time"

// PollOption is one votable choice in a community poll
type PollOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	Image string `json:"image"`
}

// Poll is a community vote that closes at a deadline. Each user holds at most
// one vote and may change it while the poll is open.
type Poll struct {
	ID              int64             `json:"id"`
	Question        string            `json:"question"`
	Options         []PollOption      `json:"options"`
	Votes           map[string]string `json:"votes"` // username -> option id
	EndsAt          time.Time         `json:"endsAt"`
	Closed          bool              `json:"closed"`
	WinningOptionID *string           `json:"winningOptionId"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// HasOption returns true if the option id belongs to this poll
func (p *Poll) HasOption(optionID string) bool {
	for _, o := range p.Options {
		if o.ID == optionID {
			return true
		}
	}
	return false
}

// IsOverdue returns true if the poll is past its deadline but not closed
func (p *Poll) IsOverdue(now time.Time) bool {
	return !p.Closed && !now.Before(p.EndsAt)
}

// SetVote records or replaces username's vote
func (p *Poll) SetVote(username, optionID string) {
	if p.Votes == nil {
		p.Votes = make(map[string]string)
	}
	p.Votes[username] = optionID
}

// Tallies returns vote counts per option id
func (p *Poll) Tallies() map[string]int {
	tallies := make(map[string]int, len(p.Options))
	for _, optionID := range p.Votes {
		tallies[optionID]++
	}
	return tallies
}

// WinningOption returns the option with the most votes; ties resolve to the
// option declared first. Nil when no votes were cast.
func (p *Poll) WinningOption() *string {
	tallies := p.Tallies()
	best := -1
	var winner *string
	for _, o := range p.Options {
		if tallies[o.ID] > best && tallies[o.ID] > 0 {
			best = tallies[o.ID]
			id := o.ID
			winner = &id
		}
	}
	return winner
}

// Close marks the poll resolved with the given winning option
func (p *Poll) Close(winner *string) {
	p.Closed = true
	p.WinningOptionID = winner
	p.UpdatedAt = time.Now().UTC()
}

// Clone returns a deep copy, used by snapshot-based stores
func (p *Poll) Clone() *Poll {
	c := *p
	c.Options = make([]PollOption, len(p.Options))
	copy(c.Options, p.Options)
	c.Votes = make(map[string]string, len(p.Votes))
	for k, v := range p.Votes {
		c.Votes[k] = v
	}
	if p.WinningOptionID != nil {
		w := *p.WinningOptionID
		c.WinningOptionID = &w
	}
	return &c
}
