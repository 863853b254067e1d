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

package aspect

import (
	"context"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"

	"github.com/rulego/weave/aop"
	"github.com/rulego/weave/aop/pointcut"
	"github.com/rulego/weave/api/types"
)

// adviceSignatures are the method types an aspect method must have for each advice kind.
var adviceSignatures = map[types.AdviceKind]reflect.Type{
	types.Before:         reflect.TypeOf((func(context.Context, types.JoinPoint) error)(nil)),
	types.After:          reflect.TypeOf((func(context.Context, types.JoinPoint, interface{}, error))(nil)),
	types.AfterReturning: reflect.TypeOf((func(context.Context, types.JoinPoint, interface{}))(nil)),
	types.AfterThrowing:  reflect.TypeOf((func(context.Context, types.JoinPoint, error))(nil)),
	types.Around:         reflect.TypeOf((func(context.Context, types.Invocation) (interface{}, error))(nil)),
}

// AdvisorFactory builds the advisors declared by aspect components.
type AdvisorFactory struct {
	config types.Config
}

// NewAdvisorFactory creates a factory parsing pointcuts with config.
func NewAdvisorFactory(config types.Config) *AdvisorFactory {
	if config.Logger == nil {
		config.Logger = types.DiscardLogger()
	}
	return &AdvisorFactory{config: config}
}

// IsAspect reports whether components of type t are aspects.
func (f *AdvisorFactory) IsAspect(t reflect.Type) bool {
	return t != nil && t.Implements(types.AspectComponentType)
}

// Metadata returns the aspect metadata of type t, read from a zero value.
func (f *AdvisorFactory) Metadata(t reflect.Type) (types.AspectMetadata, error) {
	if !f.IsAspect(t) {
		return types.AspectMetadata{}, fmt.Errorf("type %v is not an aspect", t)
	}
	var zero reflect.Value
	if t.Kind() == reflect.Ptr {
		zero = reflect.New(t.Elem())
	} else {
		zero = reflect.Zero(t)
	}
	return zero.Interface().(types.AspectComponent).AspectMetadata(), nil
}

// Validate checks that every advice method of the aspect type t exists with
// the signature of its kind and that every pointcut parses.
func (f *AdvisorFactory) Validate(name string, t reflect.Type) error {
	metadata, err := f.Metadata(t)
	if err != nil {
		return types.NewConfigurationError(name, "aspect validation", err.Error())
	}
	_, err = f.build(name, t, metadata, nil)
	return err
}

// Advisors returns one advisor per advice method of the aspect served by
// instanceFactory, in declaration order. The advice calls its method on the
// instance returned by instanceFactory at each join point.
func (f *AdvisorFactory) Advisors(instanceFactory types.AspectInstanceFactory) ([]types.Advisor, error) {
	name := instanceFactory.AspectName()
	t := instanceFactory.AspectType()
	metadata, err := f.Metadata(t)
	if err != nil {
		return nil, types.NewConfigurationError(name, "aspect resolution", err.Error())
	}
	return f.build(name, t, metadata, instanceFactory)
}

func (f *AdvisorFactory) build(name string, t reflect.Type, metadata types.AspectMetadata,
	instanceFactory types.AspectInstanceFactory) ([]types.Advisor, error) {
	named, err := f.namedPointcuts(name, metadata)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(named))
	for key := range named {
		names = append(names, key)
	}
	parser := f.parser(names, named)

	order := metadata.Order
	if instanceFactory != nil {
		order = instanceFactory.Order()
	}

	advisors := make([]types.Advisor, 0, len(metadata.Advice))
	for i, method := range metadata.Advice {
		if err := checkSignature(t, method); err != nil {
			return nil, types.NewConfigurationError(name, "aspect resolution", err.Error())
		}
		pc, err := resolvePointcut(parser, named, method.Pointcut)
		if err != nil {
			return nil, &types.ConfigurationError{Component: name, Phase: "aspect resolution",
				Reason: fmt.Sprintf("advice method %s", method.Method), Cause: err}
		}
		advice := newMethodAdvice(instanceFactory, method, f.config.Logger)
		advisors = append(advisors, &aspectAdvisor{
			DefaultAdvisor: aop.NewAdvisor(pc, advice,
				aop.WithOrder(order),
				aop.WithAspectName(name),
				aop.WithIdentity(name+types.NamespaceSeparator+method.Method)),
			method:           method,
			declarationOrder: i,
		})
	}
	return advisors, nil
}

func (f *AdvisorFactory) namedPointcuts(name string, metadata types.AspectMetadata) (map[string]types.Pointcut, error) {
	keys := make([]string, 0, len(metadata.Pointcuts))
	for key := range metadata.Pointcuts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	if cycle := referenceCycle(keys, metadata.Pointcuts); cycle != nil {
		return nil, types.NewConfigurationError(name, "aspect resolution",
			"named pointcuts reference each other: "+strings.Join(cycle, " -> "))
	}

	named := make(map[string]types.Pointcut, len(keys))
	parser := f.parser(keys, named)
	for _, key := range keys {
		pc, err := parser.Parse(metadata.Pointcuts[key])
		if err != nil {
			return nil, &types.ConfigurationError{Component: name, Phase: "aspect resolution",
				Reason: fmt.Sprintf("named pointcut %s", key), Cause: err}
		}
		named[key] = pc
	}
	return named, nil
}

// referenceCycle returns a chain of named pointcuts calling back to its
// first element, nil when the references are acyclic.
func referenceCycle(keys []string, expressions map[string]string) []string {
	refs := make(map[string][]string, len(keys))
	for _, key := range keys {
		for _, other := range keys {
			if referencePattern(other).MatchString(expressions[key]) {
				refs[key] = append(refs[key], other)
			}
		}
	}
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[string]int, len(keys))
	var path []string
	var visit func(key string) []string
	visit = func(key string) []string {
		switch state[key] {
		case done:
			return nil
		case visiting:
			for i, p := range path {
				if p == key {
					return append(append([]string{}, path[i:]...), key)
				}
			}
		}
		state[key] = visiting
		path = append(path, key)
		for _, ref := range refs[key] {
			if cycle := visit(ref); cycle != nil {
				return cycle
			}
		}
		path = path[:len(path)-1]
		state[key] = done
		return nil
	}
	for _, key := range keys {
		if cycle := visit(key); cycle != nil {
			return cycle
		}
	}
	return nil
}

// referencePattern matches a call of the named pointcut name.
func referencePattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(^|[^\w.])` + regexp.QuoteMeta(name) + `\s*\(`)
}

// parser returns a parser for expressions calling the named pointcuts names,
// looked up in named at evaluation time so that named pointcuts may reference
// each other.
func (f *AdvisorFactory) parser(names []string, named map[string]types.Pointcut) pointcut.Parser {
	return pointcut.Parser{
		Config: f.config,
		Names:  names,
		Lookup: func(name string) (types.Pointcut, bool) {
			pc, ok := named[name]
			return pc, ok
		},
	}
}

// resolvePointcut returns the named pointcut referenced as "name" or "name()",
// or parses expression.
func resolvePointcut(parser pointcut.Parser, named map[string]types.Pointcut, expression string) (types.Pointcut, error) {
	ref := strings.TrimSuffix(strings.TrimSpace(expression), "()")
	if pc, ok := named[ref]; ok {
		return pc, nil
	}
	return parser.Parse(expression)
}

func checkSignature(t reflect.Type, method types.AdviceMethod) error {
	want, ok := adviceSignatures[method.Kind]
	if !ok {
		return fmt.Errorf("advice method %s: unknown advice kind %d", method.Method, method.Kind)
	}
	m, ok := t.MethodByName(method.Method)
	if !ok {
		return fmt.Errorf("advice method %s: type %v has no such method", method.Method, t)
	}
	// m.Type has the receiver as first parameter
	got := m.Type
	if got.NumIn()-1 != want.NumIn() || got.NumOut() != want.NumOut() {
		return fmt.Errorf("advice method %s: %s advice must have signature %v", method.Method, method.Kind, want)
	}
	for i := 0; i < want.NumIn(); i++ {
		if got.In(i+1) != want.In(i) {
			return fmt.Errorf("advice method %s: %s advice must have signature %v", method.Method, method.Kind, want)
		}
	}
	for i := 0; i < want.NumOut(); i++ {
		if got.Out(i) != want.Out(i) {
			return fmt.Errorf("advice method %s: %s advice must have signature %v", method.Method, method.Kind, want)
		}
	}
	return nil
}

// aspectAdvisor is an advisor declared by an aspect method.
type aspectAdvisor struct {
	*aop.DefaultAdvisor
	method           types.AdviceMethod
	declarationOrder int
}

// AdviceMethod returns the declaration of the advice.
func (a *aspectAdvisor) AdviceMethod() types.AdviceMethod {
	return a.method
}

// DeclarationOrder returns the index of the advice in the aspect metadata.
func (a *aspectAdvisor) DeclarationOrder() int {
	return a.declarationOrder
}

// methodAdvice calls an aspect method on the instance of its factory.
type methodAdvice struct {
	factory types.AspectInstanceFactory
	method  types.AdviceMethod
	logger  types.Logger
}

func newMethodAdvice(factory types.AspectInstanceFactory, method types.AdviceMethod, logger types.Logger) interface{} {
	m := &methodAdvice{factory: factory, method: method, logger: logger}
	switch method.Kind {
	case types.Before:
		return &beforeMethodAdvice{m}
	case types.After:
		return &afterMethodAdvice{m}
	case types.AfterReturning:
		return &afterReturningMethodAdvice{m}
	case types.AfterThrowing:
		return &afterThrowingMethodAdvice{m}
	default:
		return &aroundMethodAdvice{m}
	}
}

// bind returns the advice method of the current aspect instance.
func (m *methodAdvice) bind() (interface{}, error) {
	if m.factory == nil {
		return nil, fmt.Errorf("advice method %s has no aspect instance factory", m.method.Method)
	}
	instance, err := m.factory.AspectInstance()
	if err != nil {
		return nil, err
	}
	method := reflect.ValueOf(instance).MethodByName(m.method.Method)
	if !method.IsValid() {
		return nil, fmt.Errorf("aspect %s: instance %T has no method %s", m.factory.AspectName(), instance, m.method.Method)
	}
	return method.Interface(), nil
}

type beforeMethodAdvice struct{ *methodAdvice }

func (a *beforeMethodAdvice) Before(ctx context.Context, jp types.JoinPoint) error {
	fn, err := a.bind()
	if err != nil {
		return err
	}
	return fn.(func(context.Context, types.JoinPoint) error)(ctx, jp)
}

type afterMethodAdvice struct{ *methodAdvice }

func (a *afterMethodAdvice) After(ctx context.Context, jp types.JoinPoint, result interface{}, err error) {
	fn, bindErr := a.bind()
	if bindErr != nil {
		a.logger.Warnf("after advice %s skipped: %v", a.method.Method, bindErr)
		return
	}
	fn.(func(context.Context, types.JoinPoint, interface{}, error))(ctx, jp, result, err)
}

type afterReturningMethodAdvice struct{ *methodAdvice }

func (a *afterReturningMethodAdvice) AfterReturning(ctx context.Context, jp types.JoinPoint, result interface{}) {
	fn, err := a.bind()
	if err != nil {
		a.logger.Warnf("after returning advice %s skipped: %v", a.method.Method, err)
		return
	}
	fn.(func(context.Context, types.JoinPoint, interface{}))(ctx, jp, result)
}

type afterThrowingMethodAdvice struct{ *methodAdvice }

func (a *afterThrowingMethodAdvice) AfterThrowing(ctx context.Context, jp types.JoinPoint, err error) {
	fn, bindErr := a.bind()
	if bindErr != nil {
		a.logger.Warnf("after throwing advice %s skipped: %v", a.method.Method, bindErr)
		return
	}
	fn.(func(context.Context, types.JoinPoint, error))(ctx, jp, err)
}

type aroundMethodAdvice struct{ *methodAdvice }

func (a *aroundMethodAdvice) Around(ctx context.Context, inv types.Invocation) (interface{}, error) {
	fn, err := a.bind()
	if err != nil {
		return nil, err
	}
	return fn.(func(context.Context, types.Invocation) (interface{}, error))(ctx, inv)
}
