// Copyright (c) MetaExpert Authors.
// Licensed under the MIT License.

/*
Package testutil 汇集各包测试共享的模拟实现与测试数据，
避免重复实现相似的测试基础设施。

# 子包

  - testutil/mocks: ScriptedProvider，按脚本应答的 LLM Provider，
    记录每次请求并支持脚本耗尽与故障注入
  - testutil/fixtures: 测试数据工厂，提供 meta 代理的五步决策 JSON 等样例

# 使用示例

	provider := mocks.NewScriptedProvider("你好！想调研什么？")
	resp, err := provider.Completion(ctx, req)
	require.NoError(t, err)
	require.Equal(t, 1, provider.CallCount())
*/
package testutil
