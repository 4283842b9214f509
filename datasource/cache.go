package datasource

import (
	"fmt"

	"github.com/benhoyt/goawk/parser"
	"github.com/dianpeng/awkframe/plan"
	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache keeps parsed scan programs and inferred schemas. A nil *Cache is
// valid and caches nothing.
type Cache struct {
	programs *lru.Cache[string, *parser.Program]
	schemas  *lru.Cache[string, *plan.Schema]
}

func NewCache(size int) (*Cache, error) {
	programs, err := lru.New[string, *parser.Program](size)
	if err != nil {
		return nil, fmt.Errorf("datasource(cache): %w", err)
	}
	schemas, err := lru.New[string, *plan.Schema](size)
	if err != nil {
		return nil, fmt.Errorf("datasource(cache): %w", err)
	}
	return &Cache{
		programs: programs,
		schemas:  schemas,
	}, nil
}

func parseProgram(src string) (*parser.Program, error) {
	prog, err := parser.ParseProgram([]byte(src), nil)
	if err != nil {
		return nil, fmt.Errorf("datasource(awk): generated program does not parse: %w", err)
	}
	return prog, nil
}

func (self *Cache) program(src string) (*parser.Program, error) {
	if self == nil {
		return parseProgram(src)
	}
	if prog, ok := self.programs.Get(src); ok {
		return prog, nil
	}
	prog, err := parseProgram(src)
	if err != nil {
		return nil, err
	}
	self.programs.Add(src, prog)
	return prog, nil
}

func (self *Cache) schema(
	key string,
	infer func() (*plan.Schema, error),
) (*plan.Schema, error) {
	if self == nil {
		return infer()
	}
	if s, ok := self.schemas.Get(key); ok {
		return s, nil
	}
	s, err := infer()
	if err != nil {
		return nil, err
	}
	self.schemas.Add(key, s)
	return s, nil
}

// Stats returns the number of cached programs and schemas
func (self *Cache) Stats() (int, int) {
	if self == nil {
		return 0, 0
	}
	return self.programs.Len(), self.schemas.Len()
}

func (self *Cache) Purge() {
	if self == nil {
		return
	}
	self.programs.Purge()
	self.schemas.Purge()
}
