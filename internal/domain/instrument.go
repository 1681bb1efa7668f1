package domain

type InstrumentClass string

const (
	ClassFutures InstrumentClass = "futures"
	ClassCrypto  InstrumentClass = "crypto"
	ClassIndex   InstrumentClass = "index"
)

// SessionCalendar names the venue trading-session table an instrument follows.
type SessionCalendar string

const (
	// CalendarFutures24x5 trades around the clock Sunday evening through
	// Friday close, with a 21:00-22:00 UTC daily maintenance gap.
	CalendarFutures24x5 SessionCalendar = "futures_24x5"
	// CalendarCrypto24x7 never closes.
	CalendarCrypto24x7 SessionCalendar = "crypto_24x7"
	// CalendarLondonCash trades London cash hours only (08:00-16:30 local).
	CalendarLondonCash SessionCalendar = "london_cash"
)

const (
	TimezoneEastern = "America/New_York"
	TimezoneLondon  = "Europe/London"
)

// Instrument identifies a tradable instrument and its venue semantics. The
// home timezone drives all local-clock reference levels (midnight open, NY
// opens, the 9am/10am intraday hours).
type Instrument struct {
	Symbol   string          `json:"symbol"`
	Name     string          `json:"name"`
	Class    InstrumentClass `json:"class"`
	Calendar SessionCalendar `json:"calendar"`
	Timezone string          `json:"timezone"`
}

// Instruments maps symbols to the instruments we track.
var Instruments = map[string]Instrument{
	"ES":    {Symbol: "ES", Name: "E-mini S&P 500", Class: ClassFutures, Calendar: CalendarFutures24x5, Timezone: TimezoneEastern},
	"NQ":    {Symbol: "NQ", Name: "E-mini Nasdaq-100", Class: ClassFutures, Calendar: CalendarFutures24x5, Timezone: TimezoneEastern},
	"BTC":   {Symbol: "BTC", Name: "Bitcoin", Class: ClassCrypto, Calendar: CalendarCrypto24x7, Timezone: TimezoneEastern},
	"ETH":   {Symbol: "ETH", Name: "Ethereum", Class: ClassCrypto, Calendar: CalendarCrypto24x7, Timezone: TimezoneEastern},
	"SPX":   {Symbol: "SPX", Name: "S&P 500 Index", Class: ClassIndex, Calendar: CalendarFutures24x5, Timezone: TimezoneEastern},
	"UK100": {Symbol: "UK100", Name: "FTSE 100 Index", Class: ClassIndex, Calendar: CalendarLondonCash, Timezone: TimezoneLondon},
}

// SupportedSymbols lists all tracked instruments in display order.
var SupportedSymbols = []string{"ES", "NQ", "BTC", "ETH", "SPX", "UK100"}
