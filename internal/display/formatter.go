package display

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"gambweb/internal/game"
	"gambweb/internal/wager"
)

// Formatter renders settlement messages for the display surface. Kernels
// report structured outcomes; every player-facing sentence is built here.
type Formatter struct {
	printer *message.Printer
	title   cases.Caser
}

func New() *Formatter {
	return &Formatter{
		printer: message.NewPrinter(language.English),
		title:   cases.Title(language.English),
	}
}

// Outcome implements wager.Formatter.
func (f *Formatter) Outcome(o wager.Outcome, stake int64) string {
	p := f.printer
	credit := o.Credit(stake)

	switch d := o.Detail.(type) {
	case game.CoinDetail:
		side := f.title.String(d.Landed)
		if o.Won {
			return p.Sprintf("It's %s! You won %d credits!", side, credit)
		}
		return p.Sprintf("It's %s! You lost %d credits.", side, stake)

	case game.DiceDetail:
		switch {
		case o.Reason == wager.ReasonHouse:
			return p.Sprintf("You rolled a %d! House wins.", d.Sum)
		case o.Won:
			return p.Sprintf("You rolled %d! You won %d credits!", d.Sum, credit)
		}
		return p.Sprintf("You rolled %d! You lost %d credits.", d.Sum, stake)

	case game.HighLowDetail:
		switch {
		case o.Push:
			return p.Sprintf("It's a %d! A push, bet returned.", d.Next)
		case o.Won:
			return p.Sprintf("Next card is %d! You won %d credits!", d.Next, credit)
		}
		return p.Sprintf("Next card is %d! You lost %d credits.", d.Next, stake)

	case game.MemoryDetail:
		return p.Sprintf("Brilliant! You won %d credits in %d moves!", credit, d.Moves)

	case game.HeartsDetail:
		if o.Won {
			return p.Sprintf("Romance blooms! You win %d credits!", credit)
		}
		return "No romance this time. Better luck next time!"

	case game.BlackjackDetail:
		switch {
		case o.Push:
			return p.Sprintf("Push! Player: %d, Dealer: %d", d.PlayerValue, d.DealerValue)
		case o.Reason == wager.ReasonBust:
			return p.Sprintf("Bust! Player: %d, Dealer: %d", d.PlayerValue, d.DealerValue)
		case o.Won:
			return p.Sprintf("You win! Player: %d, Dealer: %d", d.PlayerValue, d.DealerValue)
		}
		return p.Sprintf("Dealer wins! Player: %d, Dealer: %d", d.PlayerValue, d.DealerValue)

	case game.PokerDetail:
		switch {
		case d.Folded:
			return "You folded. Dealer wins the pot."
		case d.Tie:
			return p.Sprintf("Split pot with %s. You get %d credits back.", d.PlayerCategory, o.Payout)
		case o.Won:
			return p.Sprintf("You win with %s!", d.PlayerCategory)
		}
		return p.Sprintf("Dealer wins with %s.", d.DealerCategory)

	case game.RouletteDetail:
		if o.Won {
			return p.Sprintf("The wheel landed on %d! You win %d credits!", d.Pocket, credit)
		}
		return p.Sprintf("The wheel landed on %d. Better luck next time!", d.Pocket)

	case game.SlotsDetail:
		reels := strings.Join(d.Symbols, " ")
		switch {
		case o.Reason == wager.ReasonJackpot:
			return p.Sprintf("JACKPOT! %s - You win %d credits!", reels, credit)
		case o.Won:
			return p.Sprintf("Winner! %s - You win %d credits!", reels, credit)
		}
		return reels + " - Try again!"
	}

	if o.Won {
		return p.Sprintf("You won %d credits!", credit)
	}
	return p.Sprintf("You lost %d credits.", stake)
}
