package parser

import "llir-opt/internal/ir"

// parseAnnotation decodes the S-expression payload following an @name token
// and installs it into annot, grounded on core/parser_inst.cpp's
// ParseAnnotation (the three known forms: @probability, @caml_frame,
// @cxx_lsda). Unknown annotation names are a parse error, matching the
// source's behavior of rejecting anything it doesn't recognize rather than
// silently ignoring it.
func (p *Parser) parseAnnotation(name string, annot *ir.AnnotSet) {
	switch name {
	case "probability":
		p.parseProbability(annot)
	case "caml_frame":
		p.parseCamlFrame(annot)
	case "cxx_lsda":
		p.parseCxxLSDA(annot)
	default:
		p.errorf("invalid annotation")
	}
}

// parseProbability expects a 2-element (numerator denominator) tuple.
func (p *Parser) parseProbability(annot *ir.AnnotSet) {
	sexp := p.l.ParseSExp()
	list, ok := sexp.AsList()
	if !ok || len(list) != 2 {
		return
	}
	n, nok := list[0].AsNumber()
	d, dok := list[1].AsNumber()
	if !nok || !dok {
		p.errorf("invalid numerator or denumerator")
	}
	if !annot.Set(ir.AnnotProbability, ir.Probability{N: n, D: d}) {
		p.errorf("duplicate @probability")
	}
}

// parseCamlFrame expects either an empty tuple or a 2-element
// (allocs infos) tuple, where allocs is a flat list of numbers and infos is
// a list of per-result debug-info lists, each a 3-tuple of
// (location file-name definition-name).
func (p *Parser) parseCamlFrame(annot *ir.AnnotSet) {
	var allocs []int
	var infos [][]int

	sexp := p.l.ParseSExp()
	if list, ok := sexp.AsList(); ok {
		switch len(list) {
		case 0:
		case 2:
			sallocs, aok := list[0].AsList()
			sinfos, iok := list[1].AsList()
			if !aok || !iok {
				p.errorf("invalid @caml_frame descriptor")
			}
			for _, item := range sallocs {
				n, ok := item.AsNumber()
				if !ok {
					p.errorf("invalid allocation descriptor")
				}
				allocs = append(allocs, int(n))
			}
			for _, sinfo := range sinfos {
				entries, ok := sinfo.AsList()
				if !ok {
					p.errorf("invalid debug infos descriptor")
				}
				info := make([]int, 0, len(entries))
				for _, sdebug := range entries {
					fields, ok := sdebug.AsList()
					if !ok {
						p.errorf("invalid debug info descriptor")
					}
					if len(fields) != 3 {
						p.errorf("malformed debug info descriptor")
					}
					loc, locOK := fields[0].AsNumber()
					_, fileOK := fields[1].AsString()
					_, defOK := fields[2].AsString()
					if !locOK || !fileOK || !defOK {
						p.errorf("missing debug info fields")
					}
					info = append(info, int(loc))
				}
				infos = append(infos, info)
			}
		default:
			p.errorf("malformed @caml_frame descriptor")
		}
	}

	if !annot.Set(ir.AnnotCamlFrame, ir.CamlFrame{Allocs: allocs, Infos: infos}) {
		p.errorf("duplicate @caml_frame")
	}
}

// parseCxxLSDA expects a 4-element (cleanup catch-all catch-types
// filter-types) tuple.
func (p *Parser) parseCxxLSDA(annot *ir.AnnotSet) {
	sexp := p.l.ParseSExp()
	list, ok := sexp.AsList()
	if !ok || len(list) != 4 {
		p.errorf("malformed @cxx_lsda, expected 4-element tuple")
	}

	cleanup, ok := list[0].AsNumber()
	if !ok {
		p.errorf("@cxx_lsda expects cleanup flag")
	}
	catchAll, ok := list[1].AsNumber()
	if !ok {
		p.errorf("@cxx_lsda expects catch-all flag")
	}

	catchTys, ok := list[2].AsList()
	if !ok {
		p.errorf("@cxx_lsda expects catch types")
	}
	cs := make([]string, 0, len(catchTys))
	for _, item := range catchTys {
		s, ok := item.AsString()
		if !ok {
			p.errorf("@cxx_lsda expects catch type names")
		}
		cs = append(cs, s)
	}

	filterTys, ok := list[3].AsList()
	if !ok {
		p.errorf("@cxx_lsda expects filter types")
	}
	fs := make([]string, 0, len(filterTys))
	for _, item := range filterTys {
		s, ok := item.AsString()
		if !ok {
			p.errorf("@cxx_lsda expects filter type names")
		}
		fs = append(fs, s)
	}

	if !annot.Set(ir.AnnotCxxLSDA, ir.CxxLSDA{
		Cleanup:   cleanup != 0,
		CatchAll:  catchAll != 0,
		CatchTys:  cs,
		FilterTys: fs,
	}) {
		p.errorf("duplicate @cxx_lsda")
	}
}
