/*
 * Copyright 2023 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package test

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"github.com/rulego/weave/api/types"
	"go.uber.org/atomic"
)

// ErrUserNotFound is returned by UserService.Query for unknown ids.
var ErrUserNotFound = errors.New("user not found")

// UserServiceName is the capability name of UserService.
const UserServiceName = "UserService"

var (
	// InvokerType is the reflect.Type of types.Invoker.
	InvokerType = reflect.TypeOf((*types.Invoker)(nil)).Elem()
	// UserServiceType is the reflect.Type of *UserService.
	UserServiceType = reflect.TypeOf((*UserService)(nil))

	// QueryOp returns the name of a user id.
	QueryOp = types.NewOperation(UserServiceName, "Query", reflect.TypeOf(""), reflect.TypeOf(0))
	// CountOp returns the number of users.
	CountOp = types.NewOperation(UserServiceName, "Count", reflect.TypeOf(0))
	// SaveOp stores a user name and returns no value.
	SaveOp = types.NewOperation(UserServiceName, "Save", nil, reflect.TypeOf(""))
	// SelfOp returns the service itself, declared as an Invoker.
	SelfOp = types.NewOperation(UserServiceName, "Self", InvokerType)
	// RawSelfOp returns the service itself, declared as any value.
	RawSelfOp = types.NewOperation(UserServiceName, "RawSelf", types.AnyType)
	// NamesOp returns the sorted user names.
	NamesOp = types.NewOperation(UserServiceName, "Names", reflect.TypeOf([]string(nil)))

	// UserServiceCapability declares the operations of UserService.
	UserServiceCapability = types.Capability{
		Name:       UserServiceName,
		Operations: []types.Operation{QueryOp, CountOp, SaveOp, SelfOp, RawSelfOp, NamesOp},
	}
)

// UserService is a sample service called reflectively by proxies.
type UserService struct {
	mu        sync.RWMutex
	users     map[int]string
	nextID    int
	name      string
	calls     atomic.Int64
	destroyed atomic.Bool
	// RawTargetAccess marks the capability as opting out of self-reference substitution.
	RawTargetAccess bool
}

// NewUserService creates a service holding users, keyed from 1.
func NewUserService(users ...string) *UserService {
	s := &UserService{users: make(map[int]string)}
	for _, u := range users {
		_ = s.Save(u)
	}
	return s
}

func (s *UserService) Capabilities() []types.Capability {
	c := UserServiceCapability
	c.RawTargetAccess = s.RawTargetAccess
	return []types.Capability{c}
}

func (s *UserService) Query(ctx context.Context, id int) (string, error) {
	s.calls.Inc()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if name, ok := s.users[id]; ok {
		return name, nil
	}
	return "", fmt.Errorf("user %d: %w", id, ErrUserNotFound)
}

func (s *UserService) Count() int {
	s.calls.Inc()
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *UserService) Save(name string) error {
	if name == "" {
		return errors.New("empty user name")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.users == nil {
		s.users = make(map[int]string)
	}
	s.nextID++
	s.users[s.nextID] = name
	return nil
}

func (s *UserService) Self() *UserService {
	s.calls.Inc()
	return s
}

func (s *UserService) RawSelf() *UserService {
	s.calls.Inc()
	return s
}

func (s *UserService) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.users))
	for _, n := range s.users {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Calls returns the number of counted operation calls.
func (s *UserService) Calls() int64 {
	return s.calls.Load()
}

func (s *UserService) SetName(name string) {
	s.name = name
}

// Name returns the definition name received through NameAware.
func (s *UserService) Name() string {
	return s.name
}

func (s *UserService) Destroy() error {
	s.destroyed.Store(true)
	return nil
}

// Destroyed reports whether Destroy was called.
func (s *UserService) Destroyed() bool {
	return s.destroyed.Load()
}

// CalculatorName is the capability name of Calculator.
const CalculatorName = "Calculator"

var (
	// AddOp adds two ints.
	AddOp = types.NewOperation(CalculatorName, "Add", reflect.TypeOf(0), reflect.TypeOf(0), reflect.TypeOf(0))
	// DivOp divides two ints and fails on division by zero.
	DivOp = types.NewOperation(CalculatorName, "Div", reflect.TypeOf(0), reflect.TypeOf(0), reflect.TypeOf(0))
	// ResetOp returns no value.
	ResetOp = types.NewOperation(CalculatorName, "Reset", nil)
	// CalculatorCapability declares the operations of Calculator.
	CalculatorCapability = types.Capability{Name: CalculatorName, Operations: []types.Operation{AddOp, DivOp, ResetOp}}
)

// ErrDivisionByZero is returned by Calculator.Div.
var ErrDivisionByZero = errors.New("division by zero")

// Calculator is a sample service dispatching its own operations through types.Invoker.
type Calculator struct {
	Invocations atomic.Int64
}

func (c *Calculator) Capabilities() []types.Capability {
	return []types.Capability{CalculatorCapability}
}

func (c *Calculator) Invoke(ctx context.Context, op types.Operation, args ...interface{}) (interface{}, error) {
	c.Invocations.Inc()
	switch op.Name {
	case AddOp.Name:
		return args[0].(int) + args[1].(int), nil
	case DivOp.Name:
		if args[1].(int) == 0 {
			return nil, ErrDivisionByZero
		}
		return args[0].(int) / args[1].(int), nil
	case ResetOp.Name:
		return nil, nil
	default:
		return nil, fmt.Errorf("calculator: unknown operation %s", op.Name)
	}
}
