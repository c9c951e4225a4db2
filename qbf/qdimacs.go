package qbf

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ParseQDIMACS reads a QBF instance in QDIMACS format. Comment lines
// ("c ...") are skipped. Quantifier lines must precede clause lines.
// Adjacent blocks of the same kind are merged into one level. Variables
// never mentioned in a quantifier line join the outermost existential
// block. The declared clause count is checked against the actual one.
func ParseQDIMACS(r io.Reader) (*Instance, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<24)

	var (
		in           *Instance
		declClauses  int
		sawHeader    bool
		inMatrix     bool
		pendingLits  []int
		blockOfLevel []Quantifier
	)

	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "c") {
			continue
		}
		fields := strings.Fields(line)

		switch {
		case fields[0] == "p":
			if sawHeader {
				return nil, fmt.Errorf("%w: duplicate problem line", ErrInvalidInput)
			}
			if len(fields) != 4 || fields[1] != "cnf" {
				return nil, fmt.Errorf("%w: malformed problem line %q", ErrInvalidInput, line)
			}
			numVars, err1 := strconv.Atoi(fields[2])
			numClauses, err2 := strconv.Atoi(fields[3])
			if err1 != nil || err2 != nil || numVars < 0 || numClauses < 0 {
				return nil, fmt.Errorf("%w: malformed problem line %q", ErrInvalidInput, line)
			}
			in = &Instance{
				NumVars: numVars,
				Level:   make([]int, numVars+1),
			}
			declClauses = numClauses
			sawHeader = true

		case fields[0] == "e" || fields[0] == "a":
			if !sawHeader {
				return nil, fmt.Errorf("%w: quantifier line before problem line", ErrInvalidInput)
			}
			if inMatrix {
				return nil, fmt.Errorf("%w: quantifier line after first clause", ErrInvalidInput)
			}
			kind := Exists
			if fields[0] == "a" {
				kind = Forall
			}
			vars, err := parseVarList(fields[1:])
			if err != nil {
				return nil, err
			}
			// Merge with the previous block when the kind repeats.
			if len(blockOfLevel) == 0 || blockOfLevel[len(blockOfLevel)-1] != kind {
				blockOfLevel = append(blockOfLevel, kind)
			}
			level := len(blockOfLevel)
			for _, v := range vars {
				if v > in.NumVars {
					return nil, fmt.Errorf("%w: quantified variable %d exceeds declared count %d", ErrInvalidInput, v, in.NumVars)
				}
				if in.Level[v] != 0 {
					return nil, fmt.Errorf("%w: variable %d quantified twice", ErrInvalidInput, v)
				}
				in.Level[v] = level
			}

		default:
			if !sawHeader {
				return nil, fmt.Errorf("%w: clause before problem line", ErrInvalidInput)
			}
			inMatrix = true
			for _, f := range fields {
				lit, err := strconv.Atoi(f)
				if err != nil {
					return nil, fmt.Errorf("%w: bad literal %q", ErrInvalidInput, f)
				}
				if lit == 0 {
					clause := make(Clause, len(pendingLits))
					copy(clause, pendingLits)
					in.Clauses = append(in.Clauses, clause)
					pendingLits = pendingLits[:0]
					continue
				}
				pendingLits = append(pendingLits, lit)
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !sawHeader {
		return nil, fmt.Errorf("%w: missing problem line", ErrInvalidInput)
	}
	if len(pendingLits) > 0 {
		return nil, fmt.Errorf("%w: last clause not terminated by 0", ErrInvalidInput)
	}
	if declClauses != len(in.Clauses) {
		return nil, fmt.Errorf("%w: declared %d clauses, found %d", ErrInvalidInput, declClauses, len(in.Clauses))
	}

	in.Prefix = blockOfLevel
	assignFreeVariables(in)

	if err := in.Validate(); err != nil {
		return nil, err
	}
	return in, nil
}

// assignFreeVariables places unquantified variables into the outermost
// existential block, creating one if the prefix starts universally.
func assignFreeVariables(in *Instance) {
	free := false
	for v := 1; v <= in.NumVars; v++ {
		if in.Level[v] == 0 {
			free = true
			break
		}
	}
	if !free {
		return
	}
	if len(in.Prefix) == 0 || in.Prefix[0] != Exists {
		// New outermost existential block; shift every level by one.
		in.Prefix = append([]Quantifier{Exists}, in.Prefix...)
		for v := 1; v <= in.NumVars; v++ {
			if in.Level[v] != 0 {
				in.Level[v]++
			}
		}
	}
	for v := 1; v <= in.NumVars; v++ {
		if in.Level[v] == 0 {
			in.Level[v] = 1
		}
	}
}

func parseVarList(fields []string) ([]int, error) {
	var vars []int
	terminated := false
	for _, f := range fields {
		n, err := strconv.Atoi(f)
		if err != nil {
			return nil, fmt.Errorf("%w: bad variable %q", ErrInvalidInput, f)
		}
		if n == 0 {
			terminated = true
			break
		}
		if n < 0 {
			return nil, fmt.Errorf("%w: negative variable %d in quantifier line", ErrInvalidInput, n)
		}
		vars = append(vars, n)
	}
	if !terminated {
		return nil, fmt.Errorf("%w: quantifier line not terminated by 0", ErrInvalidInput)
	}
	return vars, nil
}
