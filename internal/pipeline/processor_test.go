package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText(t *testing.T) {
	t.Run("短文本返回单个分片", func(t *testing.T) {
		chunks := SplitText("abcdef", 10, 2)
		require.Len(t, chunks, 1)
		assert.Equal(t, "abcdef", chunks[0])
	})

	t.Run("分片按重叠窗口滑动", func(t *testing.T) {
		// 10 个字符，窗口 4，重叠 1 -> 步长 3
		chunks := SplitText("abcdefghij", 4, 1)
		require.Len(t, chunks, 3)
		assert.Equal(t, "abcd", chunks[0])
		assert.Equal(t, "defg", chunks[1])
		assert.Equal(t, "ghij", chunks[2])

		// 相邻分片共享重叠部分
		assert.Equal(t, chunks[0][len(chunks[0])-1:], chunks[1][:1])
	})

	t.Run("按 rune 切分不会截断多字节字符", func(t *testing.T) {
		text := strings.Repeat("知识索引", 3)
		chunks := SplitText(text, 5, 1)
		for _, c := range chunks {
			assert.True(t, len([]rune(c)) <= 5)
			assert.Equal(t, c, string([]rune(c)))
		}
		// 拼回时去掉重叠应还原原文
		var rebuilt []rune
		for i, c := range chunks {
			runes := []rune(c)
			if i > 0 {
				runes = runes[1:]
			}
			rebuilt = append(rebuilt, runes...)
		}
		assert.Equal(t, text, string(rebuilt))
	})

	t.Run("空文本返回空结果", func(t *testing.T) {
		assert.Nil(t, SplitText("", 1000, 100))
	})

	t.Run("重叠不小于窗口时退化为不重叠切分", func(t *testing.T) {
		chunks := SplitText("abcdefgh", 3, 3)
		require.Len(t, chunks, 3)
		assert.Equal(t, "abc", chunks[0])
		assert.Equal(t, "def", chunks[1])
		assert.Equal(t, "gh", chunks[2])
	})

	t.Run("文本长度恰为窗口整数倍", func(t *testing.T) {
		chunks := SplitText("abcdef", 3, 0)
		require.Len(t, chunks, 2)
		assert.Equal(t, "abc", chunks[0])
		assert.Equal(t, "def", chunks[1])
	})
}
