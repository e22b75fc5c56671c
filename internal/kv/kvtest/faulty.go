// Package kvtest contiene helpers de testing para el Key-Value Gateway.
package kvtest

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/dropDatabas3/oauthabl/internal/kv"
)

// ErrInjected es el error que devuelve Faulty para las claves marcadas.
var ErrInjected = errors.New("kvtest: injected failure")

// Faulty envuelve un Backend y hace fallar operaciones seleccionadas.
type Faulty struct {
	kv.Backend

	mu          sync.Mutex
	failDelete  map[string]bool
	failPut     map[string]bool
	failGet     map[string]bool
	failList    bool
	deleteCalls int
	afterGet    map[string]func()
}

// NewFaulty envuelve b.
func NewFaulty(b kv.Backend) *Faulty {
	return &Faulty{
		Backend:    b,
		failDelete: map[string]bool{},
		failPut:    map[string]bool{},
		failGet:    map[string]bool{},
		afterGet:   map[string]func(){},
	}
}

// FailDelete hace fallar Delete sobre key.
func (f *Faulty) FailDelete(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failDelete[key] = true
}

// FailPut hace fallar Put sobre key.
func (f *Faulty) FailPut(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failPut[key] = true
}

// FailGet hace fallar Get/GetWithMetadata sobre key.
func (f *Faulty) FailGet(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failGet[key] = true
}

// AfterGet ejecuta fn una sola vez, después de la próxima lectura de key.
func (f *Faulty) AfterGet(key string, fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.afterGet[key] = fn
}

func (f *Faulty) runAfterGet(key string) {
	f.mu.Lock()
	fn := f.afterGet[key]
	delete(f.afterGet, key)
	f.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// FailList hace fallar todos los ListPage.
func (f *Faulty) FailList() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failList = true
}

// DeleteCalls retorna cuántas veces se llamó Delete.
func (f *Faulty) DeleteCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.deleteCalls
}

func (f *Faulty) shouldFail(set map[string]bool, key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return set[key]
}

func (f *Faulty) Get(ctx context.Context, key string) ([]byte, error) {
	if f.shouldFail(f.failGet, key) {
		return nil, ErrInjected
	}
	defer f.runAfterGet(key)
	return f.Backend.Get(ctx, key)
}

func (f *Faulty) GetWithMetadata(ctx context.Context, key string) ([]byte, json.RawMessage, error) {
	if f.shouldFail(f.failGet, key) {
		return nil, nil, ErrInjected
	}
	defer f.runAfterGet(key)
	return f.Backend.GetWithMetadata(ctx, key)
}

func (f *Faulty) Put(ctx context.Context, key string, value []byte, opts kv.PutOptions) error {
	if f.shouldFail(f.failPut, key) {
		return ErrInjected
	}
	return f.Backend.Put(ctx, key, value, opts)
}

func (f *Faulty) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	f.deleteCalls++
	fail := f.failDelete[key]
	f.mu.Unlock()
	if fail {
		return ErrInjected
	}
	return f.Backend.Delete(ctx, key)
}

func (f *Faulty) ListPage(ctx context.Context, opts kv.ListOptions) (kv.Page, error) {
	f.mu.Lock()
	fail := f.failList
	f.mu.Unlock()
	if fail {
		return kv.Page{}, ErrInjected
	}
	return f.Backend.ListPage(ctx, opts)
}

// Slow envuelve un Backend y bloquea cada operación hasta que ctx venza.
type Slow struct{ kv.Backend }

func (s Slow) Get(ctx context.Context, key string) ([]byte, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func (s Slow) Put(ctx context.Context, key string, value []byte, opts kv.PutOptions) error {
	<-ctx.Done()
	return ctx.Err()
}
