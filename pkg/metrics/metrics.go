// Licensed to the LF AI & Data foundation under one
// or more contributor license agreements. See the NOTICE file
// distributed with this work for additional information
// regarding copyright ownership. The ASF licenses this file
// to you under the Apache License, Version 2.0 (the
// "License"); you may not use this file except in compliance
// with the License. You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// nbtNamespace 是当前项目所有 Prometheus 指标使用的命名空间。
	nbtNamespace = "nbt"

	codecSubsystem = "codec"

	// 以下为当前使用的通用标签名。
	operationLabelName   = "operation"
	statusLabelName      = "status"
	compressionLabelName = "compression"
	codeLabelName        = "code"

	EncodeLabel = "encode"
	DecodeLabel = "decode"

	SuccessLabel = "success"
	FailLabel    = "fail"
)

var (
	// buckets 为耗时直方图的桶划分，单位为毫秒。
	// [0.01 0.02 0.04 ... 163.84]
	buckets = prometheus.ExponentialBuckets(0.01, 2, 15)

	// sizeBuckets 为负载大小的桶划分，单位为字节。
	sizeBuckets = prometheus.ExponentialBuckets(64, 4, 10)

	DocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: nbtNamespace,
			Subsystem: codecSubsystem,
			Name:      "documents_total",
			Help:      "number of documents processed",
		}, []string{operationLabelName, statusLabelName})

	PayloadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: nbtNamespace,
			Subsystem: codecSubsystem,
			Name:      "payload_bytes",
			Help:      "size of encoded payloads, after compression",
			Buckets:   sizeBuckets,
		}, []string{operationLabelName, compressionLabelName})

	Latency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: nbtNamespace,
			Subsystem: codecSubsystem,
			Name:      "latency_ms",
			Help:      "time spent encoding or decoding a document",
			Buckets:   buckets,
		}, []string{operationLabelName})

	ErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: nbtNamespace,
			Subsystem: codecSubsystem,
			Name:      "errors_total",
			Help:      "number of failures grouped by error code",
		}, []string{operationLabelName, codeLabelName})

	registerOnce     sync.Once
	metricRegisterer prometheus.Registerer
)

// GetRegisterer 返回全局 Prometheus Registerer。
// 如果尚未通过 Register 显式设置，则返回 prometheus.DefaultRegisterer。
func GetRegisterer() prometheus.Registerer {
	if metricRegisterer == nil {
		return prometheus.DefaultRegisterer
	}
	return metricRegisterer
}

// Register 注册当前定义的所有指标，重复调用只生效一次。
func Register(r prometheus.Registerer) {
	registerOnce.Do(func() {
		r.MustRegister(DocumentsTotal)
		r.MustRegister(PayloadBytes)
		r.MustRegister(Latency)
		r.MustRegister(ErrorsTotal)
		metricRegisterer = r
	})
}

// CodeLabel 将错误码格式化为标签值。
func CodeLabel(code int32) string {
	return strconv.FormatInt(int64(code), 10)
}
