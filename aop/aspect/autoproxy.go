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
	"reflect"
	"sort"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/rulego/weave/aop"
	"github.com/rulego/weave/api/types"
	"github.com/rulego/weave/utils/maps"
)

var (
	_ types.ComponentProcessor = (*AutoProxyCreator)(nil)
	_ types.Ordered            = (*AutoProxyCreator)(nil)
	_ types.FactoryAware       = (*AutoProxyCreator)(nil)
	_ types.Configurable       = (*AutoProxyCreator)(nil)
)

// AutoProxyCreatorConfig is the configuration of the auto-proxy creator definition.
type AutoProxyCreatorConfig struct {
	// ExposeProxy makes the created proxies available through aop.CurrentProxy.
	ExposeProxy bool
	// Opaque proxies do not answer Advised operations.
	Opaque bool
}

// AutoProxyCreator replaces every Operable component that some advisor
// applies to with a proxy. Candidate advisors are the advisors of the aspect
// components and the Advisor components of the factory.
type AutoProxyCreator struct {
	factory  types.ListableFactory
	resolver *Resolver
	config   types.Config
	Config   AutoProxyCreatorConfig
	proxied  mapset.Set[string]
	opts     []ResolverOption
}

// NewAutoProxyCreator creates a creator for factory. The creator registered
// by RegisterAutoProxyCreatorIfNecessary gets its factory from the container.
func NewAutoProxyCreator(factory types.ListableFactory, config types.Config, opts ...ResolverOption) *AutoProxyCreator {
	c := &AutoProxyCreator{opts: opts}
	c.SetFactory(factory)
	_ = c.Init(config, nil)
	return c
}

func (c *AutoProxyCreator) SetFactory(factory types.ListableFactory) {
	c.factory = factory
}

// Init reads the ExposeProxy and Opaque properties. The container
// configuration provides their defaults.
func (c *AutoProxyCreator) Init(config types.Config, configuration types.Configuration) error {
	c.config = config
	c.Config = AutoProxyCreatorConfig{ExposeProxy: config.ExposeProxy, Opaque: config.Opaque}
	if err := maps.Map2Struct(configuration, &c.Config); err != nil {
		return err
	}
	c.proxied = mapset.NewSet[string]()
	c.resolver = NewResolver(c.factory, config, c.opts...)
	return nil
}

// Order puts the creator before every other ordered processor.
func (c *AutoProxyCreator) Order() int {
	return types.HighestPrecedence
}

func (c *AutoProxyCreator) PostProcessBeforeInit(component interface{}, name string) (interface{}, error) {
	return component, nil
}

// PostProcessAfterInit returns a proxy of component when advisors apply to it.
func (c *AutoProxyCreator) PostProcessAfterInit(component interface{}, name string) (interface{}, error) {
	if c.skip(component, name) {
		return component, nil
	}
	operable := component.(types.Operable)
	capabilities := operable.Capabilities()
	advisors, err := c.eligibleAdvisors(capabilities, reflect.TypeOf(component))
	if err != nil {
		return nil, err
	}
	if len(advisors) == 0 {
		return component, nil
	}

	config := aop.NewAdvisedConfig(aop.NewSingletonTarget(component), capabilities...)
	config.SetExposeProxy(c.Config.ExposeProxy)
	config.SetOpaque(c.Config.Opaque)
	config.SetChainCacheSize(c.config.ChainCacheSize)
	if err := config.AddAdvisors(advisors...); err != nil {
		return nil, err
	}
	proxy, err := aop.NewProxy(config)
	if err != nil {
		return nil, err
	}
	c.proxied.Add(name)
	c.config.Logger.Debugf("created proxy for component %s with %d advisors", name, len(advisors))
	return proxy, nil
}

// skip reports whether component is infrastructure or cannot be proxied.
func (c *AutoProxyCreator) skip(component interface{}, name string) bool {
	if _, ok := component.(types.Operable); !ok {
		return true
	}
	switch component.(type) {
	case *aop.Proxy, types.AspectComponent, types.Advisor, types.ComponentProcessor, types.FactoryExtension:
		return true
	}
	if registry, ok := c.factory.(types.DefinitionRegistry); ok {
		if def, err := registry.Definition(name); err == nil && def.Role == types.RoleInfrastructure {
			return true
		}
	}
	return false
}

// eligibleAdvisors returns the candidate advisors matching an operation of
// capabilities, sorted by order, keeping the declaration order of equal orders.
func (c *AutoProxyCreator) eligibleAdvisors(capabilities []types.Capability, targetType reflect.Type) ([]types.Advisor, error) {
	candidates, err := c.candidateAdvisors()
	if err != nil {
		return nil, err
	}
	var eligible []types.Advisor
	for _, advisor := range candidates {
		if canApply(advisor, capabilities, targetType) {
			eligible = append(eligible, advisor)
		}
	}
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Order() < eligible[j].Order()
	})
	return eligible, nil
}

func (c *AutoProxyCreator) candidateAdvisors() ([]types.Advisor, error) {
	advisors, err := c.resolver.ResolveAdvisors()
	if err != nil {
		return nil, err
	}
	for _, name := range c.factory.NamesForType(types.AdvisorType, true) {
		component, err := c.factory.GetComponent(name)
		if err != nil {
			return nil, err
		}
		if advisor, ok := component.(types.Advisor); ok {
			advisors = append(advisors, advisor)
		}
	}
	return advisors, nil
}

func canApply(advisor types.Advisor, capabilities []types.Capability, targetType reflect.Type) bool {
	for _, capability := range capabilities {
		for _, op := range capability.Operations {
			if advisor.Pointcut().Matches(op, targetType) {
				return true
			}
		}
	}
	return false
}

// Resolver returns the aspect resolver of the creator.
func (c *AutoProxyCreator) Resolver() *Resolver {
	return c.resolver
}

// ProxiedNames returns the names of the components replaced by a proxy.
func (c *AutoProxyCreator) ProxiedNames() []string {
	names := c.proxied.ToSlice()
	sort.Strings(names)
	return names
}

// RegisterAutoProxyCreatorIfNecessary registers the auto-proxy creator
// definition unless it exists. An existing definition is upgraded to expose
// its proxies when exposeProxy is set.
func RegisterAutoProxyCreatorIfNecessary(registry types.DefinitionRegistry, exposeProxy bool) error {
	if registry.ContainsDefinition(types.AutoProxyCreatorName) {
		if !exposeProxy {
			return nil
		}
		def, err := registry.Definition(types.AutoProxyCreatorName)
		if err != nil {
			return err
		}
		if def.Properties == nil {
			def.Properties = types.Configuration{}
		}
		def.Properties["exposeProxy"] = true
		return nil
	}
	def := types.NewDefinition(types.AutoProxyCreatorName, &AutoProxyCreator{}).
		WithRole(types.RoleInfrastructure).
		WithProperties(types.Configuration{"exposeProxy": exposeProxy})
	return registry.RegisterDefinition(def)
}
