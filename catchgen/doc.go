// Package catchgen 是错误捕获包装方法的生成引擎。
//
// # 概述
//
// 引擎不解析任何源码。外部前端提供声明图（类 -> 方法 -> 参数 -> 注解）和常量求值器，
// 引擎负责：
//   - 找出带有 @ErrorCatching 指令的方法（按定义符号精确匹配）
//   - 解码指令中的 useLogging 与 catchers（异常类型 -> 处理函数）
//   - 为每个方法生成 <方法名>ErrorCatching 包装方法
//   - 将同一个类的包装方法合并为一个代码单元
//
// # 生成结果
//
// 以 Dart 方言为例，类 Foo 的方法 bar(int x) 带有
// @ErrorCatching(useLogging: false, catchers: {ArgumentError: logArg}) 时生成：
//
//	extension FooErrorCatching on Foo {
//	  void barErrorCatching(int x) {
//	    try {
//	      bar(x);
//	    } catch (error, stackTrace) {
//	      if (error is ArgumentError) {
//	        logArg(error, stackTrace);
//	      }
//	      rethrow;
//	    }
//	  }
//	}
//
// 所有 catchers 条目按声明顺序依次检查，命中后不会提前退出；无论是否命中都会重新抛出原始错误。
//
// # 错误分类
//
//	软失败     指令常量无法解析时读取 catchers：不做类型分发，继续生成
//	硬错误     读取 useLogging 时指令缺失或无法解析、catchers 条目无法解析：整个单元中止（*ConfigError）
//	结构不匹配 类上有标记但没有带指令的方法：不生成单元，不是错误
//
// # 方言
//
// DartDialect 输出 extension 中的 try/catch/rethrow；GoDialect 输出接收者方法，
// 用 defer + recover 捕获 panic、errors.As 做类型分发、panic(recovered) 重新抛出。
package catchgen
