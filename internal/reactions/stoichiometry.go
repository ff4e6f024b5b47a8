package reactions

// Entry is the shape of one stoichiometry cell: how many units of a
// molecule a reaction consumes and produces. E is the implementing type
// itself so stores stay monomorphic over their row shape.
type Entry[E any] interface {
	Requirement() int
	Product() int
	EnvRequirement() int
	EnvProduct() int
	// Strict makes the reactant gate "count > requirement" instead of
	// "count >= requirement".
	Strict() bool
	SupportsEnvironment() bool

	add(req, prod, envReq, envProd int) E
	withStrict() E
}

// ReqProd is the cell-local stoichiometry entry.
type ReqProd struct {
	Req  int
	Prod int
	Less bool
}

func (e ReqProd) Requirement() int          { return e.Req }
func (e ReqProd) Product() int              { return e.Prod }
func (e ReqProd) EnvRequirement() int       { return 0 }
func (e ReqProd) EnvProduct() int           { return 0 }
func (e ReqProd) Strict() bool              { return e.Less }
func (e ReqProd) SupportsEnvironment() bool { return false }

func (e ReqProd) add(req, prod, _, _ int) ReqProd {
	e.Req += req
	e.Prod += prod
	return e
}

func (e ReqProd) withStrict() ReqProd {
	e.Less = true
	return e
}

// DiffusiveReqProd also carries the molecule's exchange with the
// environment outside the cell.
type DiffusiveReqProd struct {
	ReqProd
	EnvReq  int
	EnvProd int
}

func (e DiffusiveReqProd) EnvRequirement() int       { return e.EnvReq }
func (e DiffusiveReqProd) EnvProduct() int           { return e.EnvProd }
func (e DiffusiveReqProd) SupportsEnvironment() bool { return true }

func (e DiffusiveReqProd) add(req, prod, envReq, envProd int) DiffusiveReqProd {
	e.Req += req
	e.Prod += prod
	e.EnvReq += envReq
	e.EnvProd += envProd
	return e
}

func (e DiffusiveReqProd) withStrict() DiffusiveReqProd {
	e.Less = true
	return e
}

// satisfies is the reactant gate shared by cell counts and environment
// concentrations.
func satisfies(available float64, required int, strict bool) bool {
	if strict {
		return available > float64(required)
	}
	return available >= float64(required)
}
