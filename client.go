// Copyright 2024 HAmq Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package hamq

import (
	rabbitmqTransport "github.com/buybrain/HAmq/transports/rabbitmq"
)

// Dial creates a Connection backed by RabbitMQ through amqp091-go. The
// broker is contacted lazily, when the first Channel operation runs.
func Dial(cfg Config, options ...Option) (*Connection, error) {
	o := newOptions(options)

	backend := rabbitmqTransport.NewBackend(
		rabbitmqTransport.WithLogger(o.logger),
	)

	return NewConnection(backend, cfg, options...)
}

// DialEnv is Dial with the configuration read from the environment using
// DefaultEnvPrefix
func DialEnv(options ...Option) (*Connection, error) {
	cfg, err := ConfigFromEnv(DefaultEnvPrefix)
	if err != nil {
		return nil, err
	}
	return Dial(cfg, options...)
}
