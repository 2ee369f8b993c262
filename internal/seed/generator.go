package seed

import (
	"encoding/binary"
	"fmt"
	"math/rand/v2"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/okian/dupscan/internal/domain/model"
)

// minTypoLen is the shortest name that stays above the 0.8 name threshold
// after a one-letter substitution.
const minTypoLen = 6

var (
	firstNames = []string{
		"Marie", "Jean", "Luc", "Sophie", "Isabelle", "François", "Nathalie", "Mathieu",
		"Geneviève", "Olivier", "Catherine", "Gabriel", "Émilie", "Alexandre", "Julie", "Maxime",
	}
	lastNames = []string{
		"Tremblay", "Gagnon", "Roy", "Côté", "Bouchard", "Gauthier", "Morin", "Lavoie",
		"Fortin", "Gagné", "Ouellet", "Pelletier", "Bélanger", "Lévesque", "Bergeron", "Leblanc",
	}
	streets = []string{
		"rue Principale", "boulevard Saint-Laurent", "avenue du Parc", "rue Sherbrooke",
		"chemin de la Côte", "rue Notre-Dame", "avenue des Pins", "rue King",
	}
	areaCodes  = []string{"514", "438", "450", "418", "819"}
	domains    = []string{"example.com", "example.org", "mail.example.net"}
	postalFSAs = []string{"H2X", "H3B", "G1R", "J4K", "H1A", "J8Y"}
)

// Pair links a generated donor to its planted near-duplicate.
type Pair struct {
	OriginalID  string
	DuplicateID string
}

// Generator produces deterministic donor records from a seed.
type Generator struct {
	rng *rand.Rand
	ids *rand.ChaCha8
}

// NewGenerator creates a generator; equal seeds produce equal output.
func NewGenerator(seed uint64) *Generator {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[:], seed)
	ids := rand.NewChaCha8(key)
	return &Generator{
		rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		ids: ids,
	}
}

// Generate returns n distinct donors plus planted near-duplicates for roughly
// rate*n of them, and the planted pairs.
func (g *Generator) Generate(n int, rate float64) ([]model.DonorRecord, []Pair) {
	records := make([]model.DonorRecord, 0, n+int(float64(n)*rate)+1)
	var pairs []Pair
	for i := 0; i < n; i++ {
		r := g.donor(i)
		records = append(records, r)
		if g.rng.Float64() < rate {
			d := g.nearDuplicate(r)
			records = append(records, d)
			pairs = append(pairs, Pair{OriginalID: *r.ID, DuplicateID: *d.ID})
		}
	}
	return records, pairs
}

func (g *Generator) newID() string {
	id, err := uuid.NewRandomFromReader(g.ids)
	if err != nil {
		// ChaCha8 reads never fail.
		panic(err)
	}
	return id.String()
}

func (g *Generator) pick(list []string) string {
	return list[g.rng.IntN(len(list))]
}

// donor builds a fully populated record. The index suffix in the email keeps
// distinct donors from sharing exact-match evidence.
func (g *Generator) donor(i int) model.DonorRecord {
	first, last := g.pick(firstNames), g.pick(lastNames)
	email := fmt.Sprintf("%s.%s%d@%s", asciiLower(first), asciiLower(last), i, g.pick(domains))
	phone := fmt.Sprintf("%s-555-%04d", g.pick(areaCodes), g.rng.IntN(10000))
	postal := fmt.Sprintf("%s %d%c%d", g.pick(postalFSAs), g.rng.IntN(10), 'A'+rune(g.rng.IntN(26)), g.rng.IntN(10))
	address := fmt.Sprintf("%d %s", 1+g.rng.IntN(9999), g.pick(streets))

	return model.DonorRecord{
		ID:         model.Str(g.newID()),
		Email:      model.Str(email),
		FirstName:  first,
		LastName:   last,
		Phone:      model.Str(phone),
		Address:    model.Str(address),
		City:       model.Str("Montréal"),
		PostalCode: model.Str(postal),
	}
}

// nearDuplicate rewrites r the way a second data entry typically does: the
// email changes case, the phone moves to the mobile field with another
// format, the postal code loses its space and a long name gets a typo.
func (g *Generator) nearDuplicate(r model.DonorRecord) model.DonorRecord {
	d := r
	d.ID = model.Str(g.newID())
	d.Email = model.Str(strings.ToUpper(model.Value(r.Email)[:1]) + model.Value(r.Email)[1:])

	digits := strings.NewReplacer("-", "").Replace(model.Value(r.Phone))
	d.Phone = nil
	d.Mobile = model.Str(fmt.Sprintf("(%s) %s.%s", digits[:3], digits[3:6], digits[6:]))
	d.PostalCode = model.Str(strings.ReplaceAll(model.Value(r.PostalCode), " ", ""))

	switch {
	case utf8.RuneCountInString(r.LastName) >= minTypoLen:
		d.LastName = g.typo(r.LastName)
	case utf8.RuneCountInString(r.FirstName) >= minTypoLen:
		d.FirstName = g.typo(r.FirstName)
	default:
		d.FirstName = strings.ToUpper(r.FirstName)
	}
	return d
}

// typo substitutes one interior letter.
func (g *Generator) typo(s string) string {
	runes := []rune(s)
	i := 1 + g.rng.IntN(len(runes)-2)
	repl := 'a' + rune(g.rng.IntN(26))
	if unicode.ToLower(runes[i]) == repl {
		repl = 'a' + (repl-'a'+1)%26
	}
	runes[i] = repl
	return string(runes)
}

func asciiLower(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if r < utf8.RuneSelf && unicode.IsLetter(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
