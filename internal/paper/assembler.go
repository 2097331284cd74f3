package paper

import (
	"math"
	"sort"

	"github.com/abhisek/bloomsbot/internal/bloom"
	"github.com/abhisek/bloomsbot/internal/question"
)

// Assembler selects questions for a paper. It holds no per-run state and is
// safe for concurrent use.
type Assembler struct {
	opts Options
}

// NewAssembler creates an assembler with the given search bounds.
func NewAssembler(opts Options) (*Assembler, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Assembler{opts: opts}, nil
}

// Assemble picks a subset of the Classified questions in qs that meets spec.
// It does not change question status; see Commit. The only error is a
// *ConfigError for an invalid spec. Infeasibility is reported in the Result.
//
// Candidates are taken in Seq order. Selection starts from a greedy seed
// that fills every quota minimum; if the seed misses, a depth-first search
// over add, remove and swap moves runs until a selection satisfies every
// constraint or Options.MaxSwaps states have been explored. Moves are ranked
// by remaining quota deficit, then mark deviation beyond the tolerance, then
// absolute mark deviation, then the earliest incoming question and the
// earliest outgoing question. The same pool and spec always yield the same
// selection.
func (a *Assembler) Assemble(qs []*question.Question, spec Spec) (*Result, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	s := newSearch(qs, spec, a.opts)

	if short := s.precheck(); len(short) > 0 {
		res := s.result(Infeasible)
		res.Shortfalls = short
		return res, nil
	}

	s.seed()
	if s.score().feasible() {
		res := s.result(Feasible)
		res.FastPath = true
		return res, nil
	}

	if s.dfs() {
		return s.result(Feasible), nil
	}

	s.restoreBest()
	res := s.result(Infeasible)
	res.Shortfalls = s.shortfalls()
	return res, nil
}

type candidate struct {
	q     *question.Question
	level bloom.Level
	typ   int
	marks int
	class int
}

type selection struct {
	sel        []bool
	count      int
	marks      int
	levelCount [7]int
	typeCount  []int
}

type score struct {
	deficit int
	beyond  int
	dev     int
}

func (s score) feasible() bool { return s.deficit == 0 && s.beyond == 0 }

func (s score) less(o score) bool {
	if s.deficit != o.deficit {
		return s.deficit < o.deficit
	}
	if s.beyond != o.beyond {
		return s.beyond < o.beyond
	}
	return s.dev < o.dev
}

// move adds in and/or removes out; -1 marks an unused side.
type move struct {
	in, out int
	sc      score
}

type search struct {
	spec       Spec
	opts       Options
	target     Range
	cands      []candidate
	types      []question.Type
	levelQuota [7]*Range
	typeQuota  []*Range

	st       selection
	visited  map[string]bool
	explored int

	best    score
	bestSel []bool
	hasBest bool
}

func newSearch(qs []*question.Question, spec Spec, opts Options) *search {
	s := &search{
		spec:    spec,
		opts:    opts,
		target:  spec.MarksRange(),
		visited: make(map[string]bool),
	}

	var pool []*question.Question
	for _, q := range qs {
		if q.Status() != question.StatusClassified || q.Marks <= 0 {
			continue
		}
		pool = append(pool, q)
	}
	sort.SliceStable(pool, func(i, j int) bool { return pool[i].Seq < pool[j].Seq })

	typeSet := make(map[question.Type]bool)
	for t := range spec.TypeQuota {
		typeSet[t] = true
	}
	for _, q := range pool {
		typeSet[q.Type] = true
	}
	for t := range typeSet {
		s.types = append(s.types, t)
	}
	sort.Slice(s.types, func(i, j int) bool { return s.types[i] < s.types[j] })
	typeIdx := make(map[question.Type]int, len(s.types))
	s.typeQuota = make([]*Range, len(s.types))
	for i, t := range s.types {
		typeIdx[t] = i
		if r, ok := spec.TypeQuota[t]; ok {
			s.typeQuota[i] = &r
		}
	}
	for l, r := range spec.BloomQuota {
		s.levelQuota[l] = &r
	}

	type classKey struct {
		level bloom.Level
		typ   int
		marks int
	}
	classes := make(map[classKey]int)
	for _, q := range pool {
		level, _ := q.Level()
		c := candidate{q: q, level: level, typ: typeIdx[q.Type], marks: q.Marks}
		k := classKey{c.level, c.typ, c.marks}
		id, ok := classes[k]
		if !ok {
			id = len(classes)
			classes[k] = id
		}
		c.class = id
		s.cands = append(s.cands, c)
	}

	s.st = selection{
		sel:       make([]bool, len(s.cands)),
		typeCount: make([]int, len(s.types)),
	}
	return s
}

// precheck reports constraints no selection can meet: quota minimums with
// too few candidates, or a pool whose marks cannot reach the target.
func (s *search) precheck() []Shortfall {
	var out []Shortfall
	var avail [7]int
	availType := make([]int, len(s.types))
	total := 0
	for _, c := range s.cands {
		avail[c.level]++
		availType[c.typ]++
		total += c.marks
	}
	for _, l := range bloom.Levels() {
		if r := s.levelQuota[l]; r != nil && avail[l] < r.Min {
			out = append(out, newShortfall(levelConstraint(l), *r, avail[l]))
		}
	}
	for i, t := range s.types {
		if r := s.typeQuota[i]; r != nil && availType[i] < r.Min {
			out = append(out, newShortfall(typeConstraint(t), *r, availType[i]))
		}
	}
	if total < s.target.Min {
		out = append(out, newShortfall(ConstraintMarks, s.target, total))
	}
	return out
}

func (s *search) canAdd(i int) bool {
	c := s.cands[i]
	if r := s.levelQuota[c.level]; r != nil && s.st.levelCount[c.level]+1 > r.Max {
		return false
	}
	if r := s.typeQuota[c.typ]; r != nil && s.st.typeCount[c.typ]+1 > r.Max {
		return false
	}
	return true
}

func (s *search) add(i int) {
	c := s.cands[i]
	s.st.sel[i] = true
	s.st.count++
	s.st.marks += c.marks
	s.st.levelCount[c.level]++
	s.st.typeCount[c.typ]++
}

func (s *search) remove(i int) {
	c := s.cands[i]
	s.st.sel[i] = false
	s.st.count--
	s.st.marks -= c.marks
	s.st.levelCount[c.level]--
	s.st.typeCount[c.typ]--
}

func (s *search) typeNeeds(t int) bool {
	r := s.typeQuota[t]
	return r != nil && s.st.typeCount[t] < r.Min
}

// seed fills every level minimum, preferring questions whose type is still
// short, then every type minimum. No maximum is exceeded.
func (s *search) seed() {
	for _, l := range bloom.Levels() {
		r := s.levelQuota[l]
		if r == nil {
			continue
		}
		for pass := 0; pass < 2; pass++ {
			for i, c := range s.cands {
				if s.st.levelCount[l] >= r.Min {
					break
				}
				if c.level != l || s.st.sel[i] || !s.canAdd(i) {
					continue
				}
				if pass == 0 && !s.typeNeeds(c.typ) {
					continue
				}
				s.add(i)
			}
		}
	}
	for t := range s.types {
		for i, c := range s.cands {
			if !s.typeNeeds(t) {
				break
			}
			if c.typ != t || s.st.sel[i] || !s.canAdd(i) {
				continue
			}
			s.add(i)
		}
	}
}

func (s *search) score() score {
	var sc score
	for _, l := range bloom.Levels() {
		if r := s.levelQuota[l]; r != nil {
			sc.deficit += r.deficit(s.st.levelCount[l])
		}
	}
	for t, r := range s.typeQuota {
		if r != nil {
			sc.deficit += r.deficit(s.st.typeCount[t])
		}
	}
	// An empty paper is never acceptable.
	if s.st.count == 0 {
		sc.deficit++
	}
	switch m := s.st.marks; {
	case m < s.target.Min:
		sc.beyond = s.target.Min - m
	case m > s.target.Max:
		sc.beyond = m - s.target.Max
	}
	sc.dev = abs(s.st.marks - s.spec.TotalMarks)
	return sc
}

func (s *search) key() string {
	b := make([]byte, (len(s.st.sel)+7)/8)
	for i, on := range s.st.sel {
		if on {
			b[i/8] |= 1 << (i % 8)
		}
	}
	return string(b)
}

func (s *search) track(sc score) {
	if s.hasBest && !sc.less(s.best) {
		return
	}
	s.hasBest = true
	s.best = sc
	s.bestSel = append(s.bestSel[:0], s.st.sel...)
}

func (s *search) restoreBest() {
	if !s.hasBest {
		return
	}
	for i := range s.cands {
		if s.st.sel[i] != s.bestSel[i] {
			if s.bestSel[i] {
				s.add(i)
			} else {
				s.remove(i)
			}
		}
	}
}

func (s *search) dfs() bool {
	if s.explored >= s.opts.MaxSwaps {
		return false
	}
	k := s.key()
	if s.visited[k] {
		return false
	}
	s.visited[k] = true
	s.explored++

	sc := s.score()
	s.track(sc)
	if sc.feasible() {
		return true
	}

	for _, m := range s.moves() {
		s.apply(m)
		if s.dfs() {
			return true
		}
		s.undo(m)
	}
	return false
}

func (s *search) apply(m move) {
	if m.out >= 0 {
		s.remove(m.out)
	}
	if m.in >= 0 {
		s.add(m.in)
	}
}

func (s *search) undo(m move) {
	if m.in >= 0 {
		s.remove(m.in)
	}
	if m.out >= 0 {
		s.add(m.out)
	}
}

// moves ranks the neighbours of the current selection. Questions in the
// same (level, type, marks) class are interchangeable, so only the earliest
// unselected one can come in and only the latest selected one can go out.
func (s *search) moves() []move {
	firstFree := make(map[int]int)
	lastTaken := make(map[int]int)
	var ins, outs []int
	for i, c := range s.cands {
		if s.st.sel[i] {
			if _, seen := lastTaken[c.class]; !seen {
				outs = append(outs, c.class)
			}
			lastTaken[c.class] = i
		} else if _, seen := firstFree[c.class]; !seen {
			firstFree[c.class] = i
			ins = append(ins, i)
		}
	}
	for j, class := range outs {
		outs[j] = lastTaken[class]
	}
	sort.Ints(outs)

	var ms []move
	eval := func(in, out int) {
		m := move{in: in, out: out}
		s.apply(m)
		m.sc = s.score()
		s.undo(m)
		ms = append(ms, m)
	}

	for _, in := range ins {
		if s.canAdd(in) {
			eval(in, -1)
		}
	}
	for _, out := range outs {
		eval(-1, out)
	}
	for _, out := range outs {
		s.remove(out)
		for _, in := range ins {
			if s.cands[in].class == s.cands[out].class || !s.canAdd(in) {
				continue
			}
			s.add(in)
			m := move{in: in, out: out, sc: s.score()}
			s.remove(in)
			ms = append(ms, m)
		}
		s.add(out)
	}

	sort.SliceStable(ms, func(i, j int) bool {
		a, b := ms[i], ms[j]
		if a.sc != b.sc {
			return a.sc.less(b.sc)
		}
		if ai, bi := inRank(a.in), inRank(b.in); ai != bi {
			return ai < bi
		}
		return a.out < b.out
	})
	if len(ms) > s.opts.MaxBranch {
		ms = ms[:s.opts.MaxBranch]
	}
	return ms
}

func inRank(i int) int {
	if i < 0 {
		return math.MaxInt
	}
	return i
}

// shortfalls lists every constraint the current selection misses.
func (s *search) shortfalls() []Shortfall {
	var out []Shortfall
	for _, l := range bloom.Levels() {
		if r := s.levelQuota[l]; r != nil && !r.Contains(s.st.levelCount[l]) {
			out = append(out, newShortfall(levelConstraint(l), *r, s.st.levelCount[l]))
		}
	}
	for i, t := range s.types {
		if r := s.typeQuota[i]; r != nil && !r.Contains(s.st.typeCount[i]) {
			out = append(out, newShortfall(typeConstraint(t), *r, s.st.typeCount[i]))
		}
	}
	if !s.target.Contains(s.st.marks) {
		out = append(out, newShortfall(ConstraintMarks, s.target, s.st.marks))
	}
	if len(out) == 0 && s.st.count == 0 {
		out = append(out, newShortfall(ConstraintMarks, s.target, 0))
	}
	return out
}

func (s *search) result(outcome Outcome) *Result {
	res := &Result{
		Outcome:       outcome,
		Spec:          s.spec,
		TotalMarks:    s.st.marks,
		Candidates:    len(s.cands),
		SwapsExplored: s.explored,
		LevelCounts:   make(map[bloom.Level]int),
		TypeCounts:    make(map[question.Type]int),
	}
	var picked []candidate
	for i, c := range s.cands {
		if !s.st.sel[i] {
			continue
		}
		res.LevelCounts[c.level]++
		res.TypeCounts[c.q.Type]++
		picked = append(picked, c)
	}
	if outcome != Feasible {
		return res
	}
	sort.SliceStable(picked, func(i, j int) bool {
		if picked[i].level != picked[j].level {
			return picked[i].level < picked[j].level
		}
		return picked[i].q.Seq < picked[j].q.Seq
	})
	for _, c := range picked {
		res.Questions = append(res.Questions, c.q)
	}
	return res
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
