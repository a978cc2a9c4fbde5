package scope

import "regexp"

// Component names.
const (
	CompDeck                = "deck"
	CompPorch               = "porch"
	CompGarage              = "garage"
	CompCarport             = "carport"
	CompBasement            = "basement"
	CompUnderpinning        = "underpinning"
	CompSecondSuite         = "second-suite"
	CompStoreyAddition      = "storey-addition"
	CompRearAddition        = "rear-addition"
	CompInteriorAlterations = "interior-alterations"
	CompPool                = "pool"
	CompKitchen             = "kitchen"
	CompBathroom            = "bathroom"
	CompRoof                = "roof"
	CompFence               = "fence"
	CompBalcony             = "balcony"
	CompLanewaySuite        = "laneway-suite"
	CompFireplace           = "fireplace"
	CompSolar               = "solar"
	CompElevator            = "elevator"
	CompHVAC                = "hvac"
	CompWindows             = "windows"
)

// detector proposes a component when its pattern occurs in the normalized
// description.
type detector struct {
	component string
	pattern   *regexp.Regexp
}

// Patterns run against upper-cased, whitespace-collapsed text.
var detectors = []detector{
	{CompDeck, regexp.MustCompile(`\bDECKS?\b`)},
	{CompPorch, regexp.MustCompile(`\bPORCH(ES)?\b`)},
	{CompGarage, regexp.MustCompile(`\bGARAGES?\b`)},
	{CompCarport, regexp.MustCompile(`\bCAR ?PORTS?\b`)},
	{CompBasement, regexp.MustCompile(`\bBASEMENTS?\b`)},
	{CompUnderpinning, regexp.MustCompile(`\bUNDERPIN(NING|NED)?\b`)},
	{CompSecondSuite, regexp.MustCompile(`\b(SECOND(ARY)?|2ND) (DWELLING |RESIDENTIAL )?(UNIT|SUITE)S?\b`)},
	// A structural keyword is required on either side of ADDITION.
	{CompStoreyAddition, regexp.MustCompile(`\b(STOREY|STORY|FLOOR|LEVEL)S? ADDITION\b|\bADDITION (OF |TO )?(A |AN )?(\w+ )?(STOREY|STORY|FLOOR|LEVEL)\b`)},
	{CompRearAddition, regexp.MustCompile(`\b(REAR|SIDE) (\w+ )?ADDITION\b`)},
	{CompInteriorAlterations, regexp.MustCompile(`\bINTERIOR (ALTERATIONS?|RENOVATIONS?|REMODEL\w*)\b`)},
	{CompPool, regexp.MustCompile(`\b(SWIMMING )?POOLS?\b`)},
	{CompKitchen, regexp.MustCompile(`\bKITCHENS?\b`)},
	{CompBathroom, regexp.MustCompile(`\b(BATHROOMS?|WASHROOMS?|ENSUITES?)\b`)},
	{CompRoof, regexp.MustCompile(`\b(RE-?)?ROOF(S|ING)?\b`)},
	{CompFence, regexp.MustCompile(`\bFENC(E|ES|ING)\b`)},
	{CompBalcony, regexp.MustCompile(`\bBALCON(Y|IES)\b`)},
	{CompLanewaySuite, regexp.MustCompile(`\b(LANEWAY|GARDEN) (HOUSE|SUITE)S?\b`)},
	{CompFireplace, regexp.MustCompile(`\b(FIREPLACES?|WOOD ?STOVES?|CHIMNEYS?)\b`)},
	{CompSolar, regexp.MustCompile(`\bSOLAR\b`)},
	{CompElevator, regexp.MustCompile(`\bELEVATORS?\b`)},
	{CompHVAC, regexp.MustCompile(`\b(HVAC|FURNACES?|AIR CONDITION(ING|ER)?|HEAT PUMPS?)\b`)},
	{CompWindows, regexp.MustCompile(`\bWINDOWS?\b`)},
}

var (
	newVerbs   = regexp.MustCompile(`\b(CONSTRUCT|CONSTRUCTS|CONSTRUCTED|CONSTRUCTING|CONSTRUCTION|BUILD|BUILT|ERECT\w*|ADD|ADDING|ADDITION|NEW|INSTALL\w*|PROPOSED|CREATE|CREATING)\b`)
	alterVerbs = regexp.MustCompile(`\b(REPLAC\w*|REPAIR\w*|ALTER\w*|RENOVAT\w*|REMODEL\w*|REFINISH\w*|RESTOR\w*|REBUILD\w*|RECONSTRUCT\w*|UPGRAD\w*|CONVERT\w*|CONVERSION|MODIF\w*|RE-?ROOF\w*|EXISTING)\b`)
)

// maxCueDistance is the furthest, in bytes, a verb may sit from a component
// mention and still decide its action.
const maxCueDistance = 60

// workComponents maps normalized work categories to the component they imply.
var workComponents = map[string]Tag{
	"DECK":                          {ActionNew, CompDeck},
	"PORCH":                         {ActionNew, CompPorch},
	"GARAGE":                        {ActionNew, CompGarage},
	"GARAGE REPAIR/RECONSTRUCTION":  {ActionAlter, CompGarage},
	"CARPORT":                       {ActionNew, CompCarport},
	"UNDERPINNING":                  {ActionNew, CompUnderpinning},
	"SECOND SUITE":                  {ActionNew, CompSecondSuite},
	"INTERIOR ALTERATIONS":          {ActionAlter, CompInteriorAlterations},
	"RE-ROOFING":                    {ActionAlter, CompRoof},
	"SWIMMING POOL":                 {ActionNew, CompPool},
	"BALCONY/GUARD REPAIRS":         {ActionAlter, CompBalcony},
	"FIREPLACE/WOODSTOVES":          {ActionNew, CompFireplace},
	"LANEWAY / REAR YARD SUITE":     {ActionNew, CompLanewaySuite},
	"NEW LANEWAY / REAR YARD SUITE": {ActionNew, CompLanewaySuite},
}
